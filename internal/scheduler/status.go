package scheduler

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/metrics"
)

// 只允许向前的状态变更，三个非失败状态都可以转为 failed
var transitions = map[domain.DeliveryStatus][]domain.DeliveryStatus{
	domain.DeliveryStatusScheduled:      {domain.DeliveryStatusOutForDelivery, domain.DeliveryStatusFailed},
	domain.DeliveryStatusOutForDelivery: {domain.DeliveryStatusDelivered, domain.DeliveryStatusFailed},
	domain.DeliveryStatusDelivered:      {domain.DeliveryStatusFailed},
	domain.DeliveryStatusFailed:         {},
}

func CanTransition(from, to domain.DeliveryStatus) bool {
	return slices.Contains(transitions[from], to)
}

// 只有这些状态会通知订阅者
func notifiesSubscriber(status domain.DeliveryStatus) bool {
	return status == domain.DeliveryStatusOutForDelivery || status == domain.DeliveryStatusDelivered
}

// Transition 校验并更新配送状态，持久化完成之后才会通知订阅者
func (s *Scheduler) Transition(ctx context.Context, deliveryID uuid.UUID, newStatus string) (*domain.DeliverySchedule, error) {
	to, err := domain.ParseDeliveryStatus(newStatus)
	if err != nil {
		return nil, err
	}

	delivery, err := s.store.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	from := delivery.Status
	if s.parameters.StrictTransitions && !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	delivery.Status = to
	notification := &domain.DeliveryNotification{
		Type:    domain.NotificationType(to),
		Content: fmt.Sprintf("您的配送状态已更新为：%s", to),
	}
	if err := s.store.UpdateDeliveryStatus(ctx, delivery, from, notification); err != nil {
		return nil, err
	}
	delivery.Notifications = append(delivery.Notifications, *notification)
	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()

	if notifiesSubscriber(to) {
		s.notifyStatusUpdate(ctx, delivery)
	}

	return delivery, nil
}

func (s *Scheduler) notifyStatusUpdate(ctx context.Context, delivery *domain.DeliverySchedule) {
	sub, err := s.store.GetSubscription(ctx, delivery.SubscriptionID)
	if err != nil {
		s.notificationFailed(delivery, domain.MailTypeDeliveryStatusUpdate, "", err)
		return
	}
	if sub.ContactEmail == "" {
		return
	}

	if err := s.notifier.SendDeliveryStatusUpdate(ctx, sub.ContactEmail, delivery.Status, delivery.DeliveryDate, delivery.TimeSlot); err != nil {
		s.notificationFailed(delivery, domain.MailTypeDeliveryStatusUpdate, sub.ContactEmail, err)
	}
}
