package mailer

import (
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

var statusLabels = map[string]string{
	string(domain.DeliveryStatusScheduled):      "已安排",
	string(domain.DeliveryStatusOutForDelivery): "配送中",
	string(domain.DeliveryStatusDelivered):      "已送达",
	string(domain.DeliveryStatusFailed):         "配送失败",
}

func statusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

type mailTemplate struct {
	subject string
	tmpl    *template.Template
	// 把 json 中的 data 解码为模板使用的结构体
	decode func(json.RawMessage) (any, error)
}

// Templates 保存每种邮件类型对应的模板，启动时一次性解析
type Templates struct {
	byType map[string]mailTemplate
}

func decodeInto[T any](raw json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func LoadTemplates(dir string) (*Templates, error) {
	entries := []struct {
		mailType string
		file     string
		subject  string
		decode   func(json.RawMessage) (any, error)
	}{
		{domain.MailTypeDeliveryConfirmation, "delivery_confirmation.html", "餐盒配送 - 配送已安排", decodeInto[domain.DeliveryConfirmationMailData]},
		{domain.MailTypeDeliveryStatusUpdate, "delivery_status_update.html", "餐盒配送 - 配送状态更新", decodeInto[domain.DeliveryStatusMailData]},
	}

	t := &Templates{byType: make(map[string]mailTemplate, len(entries))}
	for _, entry := range entries {
		tmpl, err := template.New(entry.file).
			Funcs(template.FuncMap{"statusLabel": statusLabel}).
			ParseFiles(filepath.Join(dir, entry.file))
		if err != nil {
			return nil, fmt.Errorf("无法解析邮件模板 %s: %w", entry.file, err)
		}
		t.byType[entry.mailType] = mailTemplate{subject: entry.subject, tmpl: tmpl, decode: entry.decode}
	}

	return t, nil
}
