// Package mailer 把配送通知以邮件任务的形式投递到 rabbitmq，由 cmd/mail 消费并发送
package mailer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
)

var _ scheduler.Notifier = (*Publisher)(nil)

// Channel 是 *amqp.Channel 中发布消息用到的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	channel        Channel
	queue          string
	publishTimeout time.Duration
}

func NewPublisher(ch Channel, queue string, publishTimeout time.Duration) *Publisher {
	return &Publisher{
		channel:        ch,
		queue:          queue,
		publishTimeout: publishTimeout,
	}
}

func (p *Publisher) SendDeliveryConfirmation(ctx context.Context, address string, date string, timeSlot domain.TimeWindow) error {
	return p.publish(ctx, domain.MailMessage{
		Type: domain.MailTypeDeliveryConfirmation,
		To:   address,
		Data: domain.DeliveryConfirmationMailData{
			Date:     date,
			TimeSlot: string(timeSlot),
		},
	})
}

func (p *Publisher) SendDeliveryStatusUpdate(ctx context.Context, address string, status domain.DeliveryStatus, date string, timeSlot domain.TimeWindow) error {
	return p.publish(ctx, domain.MailMessage{
		Type: domain.MailTypeDeliveryStatusUpdate,
		To:   address,
		Data: domain.DeliveryStatusMailData{
			Status:   string(status),
			Date:     date,
			TimeSlot: string(timeSlot),
		},
	})
}

func (p *Publisher) publish(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	// MessageId 供消费者去重，重复投递的消息只会发送一次邮件
	// 无法路由的消息会被退回，由 WatchReturns 记录
	return p.channel.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// WatchReturns 记录被 broker 退回的邮件任务，直到 returns 被关闭，返回退回的数量
func WatchReturns(returns <-chan amqp.Return, logger *slog.Logger) int {
	n := 0
	for ret := range returns {
		n++
		logger.Error("邮件任务无法投递，已被退回",
			"messageID", ret.MessageId,
			"routingKey", ret.RoutingKey,
			"replyCode", ret.ReplyCode,
			"replyText", ret.ReplyText,
		)
	}
	return n
}
