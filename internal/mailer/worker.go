package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wneessen/go-mail"
)

// ErrPermanent 表示消息本身有问题，重新入队也无法成功
var ErrPermanent = errors.New("无法处理的邮件消息")

// Sender 是 *mail.Client 中发送邮件用到的部分
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

type Worker struct {
	from      string
	sender    Sender
	templates *Templates
	// 为 nil 时不做去重
	rdb     *redis.Client
	sentTTL time.Duration
	logger  *slog.Logger
}

func NewWorker(from string, sender Sender, templates *Templates, rdb *redis.Client, sentTTL time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		from:      from,
		sender:    sender,
		templates: templates,
		rdb:       rdb,
		sentTTL:   sentTTL,
		logger:    logger,
	}
}

func sentKey(messageID string) string {
	return "mealbox:mail:sent:" + messageID
}

// Process 渲染并发送一封邮件，返回 ErrPermanent 时消息应被丢弃，其余错误应重新入队
func (w *Worker) Process(ctx context.Context, messageID string, body []byte) error {
	if w.rdb != nil && messageID != "" {
		exists, err := w.rdb.Exists(ctx, sentKey(messageID)).Result()
		if err != nil {
			w.logger.Warn("无法检查邮件是否已发送", "messageID", messageID, "error", err)
		} else if exists > 0 {
			w.logger.Info("邮件已发送过，跳过", "messageID", messageID)
			return nil
		}
	}

	msg, err := w.build(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	if err := w.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return err
	}

	if w.rdb != nil && messageID != "" {
		if err := w.rdb.Set(ctx, sentKey(messageID), "1", w.sentTTL).Err(); err != nil {
			w.logger.Warn("无法记录已发送的邮件", "messageID", messageID, "error", err)
		}
	}

	return nil
}

func (w *Worker) build(body []byte) (*mail.Msg, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	mt, ok := w.templates.byType[env.Type]
	if !ok {
		return nil, fmt.Errorf("不支持的邮件类型 %q", env.Type)
	}

	data, err := mt.decode(env.Data)
	if err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.From(w.from); err != nil {
		return nil, err
	}
	if err := m.To(env.To); err != nil {
		return nil, err
	}
	m.Subject(mt.subject)
	if err := m.SetBodyHTMLTemplate(mt.tmpl, data); err != nil {
		return nil, err
	}

	return m, nil
}
