package scheduler

import (
	"context"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

// InsertOptions 控制新增配送时在同一事务内执行的检查
type InsertOptions struct {
	// 同一时段最多允许的配送数量
	Capacity int
	// 为 true 时若该订阅在同一时段已有配送则返回 domain.ErrAlreadyScheduled
	UniquePerSubscription bool
}

type SubscriptionStore interface {
	GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
}

type DeliveryStore interface {
	// CountBookings 返回 [startDate, endDate] 内每个时段已有的配送数量
	CountBookings(ctx context.Context, startDate, endDate string) (map[domain.SlotKey]int, error)
	// InsertDelivery 必须在同一个事务中完成容量检查、写入配送和写入通知
	InsertDelivery(ctx context.Context, delivery *domain.DeliverySchedule, notification *domain.DeliveryNotification, opts InsertOptions) error
	DeliveryExists(ctx context.Context, subscriptionID uuid.UUID, slot domain.SlotKey) (bool, error)
	GetDelivery(ctx context.Context, id uuid.UUID) (*domain.DeliverySchedule, error)
	// UpdateDeliveryStatus 只在当前状态仍为 from 时更新，并在同一事务中写入通知
	UpdateDeliveryStatus(ctx context.Context, delivery *domain.DeliverySchedule, from domain.DeliveryStatus, notification *domain.DeliveryNotification) error
	// ListDeliveriesBySubscription 按配送日期倒序返回配送及其通知
	ListDeliveriesBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*domain.DeliverySchedule, error)
}

type RecurringDeliveryStore interface {
	CreateRecurringDelivery(ctx context.Context, pattern *domain.RecurringDeliveryPattern) error
	GetRecurringDelivery(ctx context.Context, id uuid.UUID) (*domain.RecurringDeliveryPattern, error)
	SetRecurringDeliveryActive(ctx context.Context, id uuid.UUID, active bool) error
}

type PreferencesStore interface {
	GetDeliveryPreferences(ctx context.Context, userID uuid.UUID) (*domain.DeliveryPreferences, error)
	UpsertDeliveryPreferences(ctx context.Context, userID uuid.UUID, prefs *domain.DeliveryPreferences) error
}

type Store interface {
	SubscriptionStore
	DeliveryStore
	RecurringDeliveryStore
	PreferencesStore
}
