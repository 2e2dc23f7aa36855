package scheduler

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=scheduler

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

// Notifier 向订阅者发送配送相关的通知，调用失败不会影响排期结果
type Notifier interface {
	SendDeliveryConfirmation(ctx context.Context, address string, date string, timeSlot domain.TimeWindow) error
	SendDeliveryStatusUpdate(ctx context.Context, address string, status domain.DeliveryStatus, date string, timeSlot domain.TimeWindow) error
}

// Locker 用于保证同一个周期配送不会被并发展开
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}
