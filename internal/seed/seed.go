package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

type SubscriberStore interface {
	// CreateSubscriber 必须在一个事务中完成，任何一步失败都不能留下用户
	CreateSubscriber(ctx context.Context, profile *domain.Profile, sub *domain.Subscription, prefs *domain.DeliveryPreferences) error
}

type PreferencesNormalizer interface {
	NormalizePreferences(prefs *domain.DeliveryPreferences) (*domain.DeliveryPreferences, error)
}

// 导入文件中必须包含的列
var requiredHeaders = []string{"姓名", "邮箱", "角色", "偏好星期", "偏好时段", "备注"}

// ImportSubscribers 从 csv 中导入用户、订阅和配送偏好，返回成功导入的行数
// 偏好星期和偏好时段用顿号分隔，例如 "monday、friday"
func ImportSubscribers(ctx context.Context, r io.Reader, store SubscriberStore, normalizer PreferencesNormalizer) (int, error) {
	reader := csv.NewReader(r)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("读取表头失败: %w", err)
	}
	for _, required := range requiredHeaders {
		found := false
		for _, header := range headers {
			if strings.TrimSpace(header) == required {
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("没有找到 %s 列", required)
		}
	}

	imported := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return imported, fmt.Errorf("读取第 %d 行失败: %w", line, err)
		}

		record := make(map[string]string, len(row))
		for i, value := range row {
			record[strings.TrimSpace(headers[i])] = strings.TrimSpace(value)
		}

		if err := importRecord(ctx, record, store, normalizer); err != nil {
			slog.Error("导入订阅用户失败", "line", line, "error", err)
			continue
		}
		imported++
	}

	return imported, nil
}

func importRecord(ctx context.Context, record map[string]string, store SubscriberStore, normalizer PreferencesNormalizer) error {
	if record["邮箱"] == "" {
		return errors.New("邮箱不能为空")
	}

	role := domain.Role(record["角色"])
	if role == "" {
		role = domain.RoleCustomer
	}

	profile := &domain.Profile{
		Email:    record["邮箱"],
		FullName: record["姓名"],
		Role:     role,
	}

	// 管理员没有订阅
	if role == domain.RoleAdmin {
		return store.CreateSubscriber(ctx, profile, nil, nil)
	}

	p := &domain.DeliveryPreferences{
		PreferredDays:      splitList(record["偏好星期"]),
		PreferredTimeSlots: []domain.TimeWindow{},
		DeliveryNotes:      record["备注"],
	}
	for _, slot := range splitList(record["偏好时段"]) {
		p.PreferredTimeSlots = append(p.PreferredTimeSlots, domain.TimeWindow(slot))
	}

	// 先校验偏好再写入
	prefs, err := normalizer.NormalizePreferences(p)
	if err != nil {
		return err
	}

	return store.CreateSubscriber(ctx, profile, &domain.Subscription{Status: "active"}, prefs)
}

func splitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, "、") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
