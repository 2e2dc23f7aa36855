package scheduler

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/metrics"
)

// Subscription 返回排期所需的订阅信息
func (s *Scheduler) Subscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return s.store.GetSubscription(ctx, id)
}

// Schedule 为订阅预约一次配送
func (s *Scheduler) Schedule(ctx context.Context, subscriptionID uuid.UUID, date string, timeSlot domain.TimeWindow, notes string) (*domain.DeliverySchedule, error) {
	if _, err := parseDate(date, s.parameters.Location); err != nil {
		return nil, err
	}
	if !timeSlot.IsValid() {
		return nil, fmt.Errorf("%w: 无法识别的配送时段 %q", domain.ErrValidation, timeSlot)
	}
	if err := s.validateNotes(notes); err != nil {
		return nil, err
	}

	// 订阅不存在时必须在写入任何数据之前返回
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	return s.book(ctx, sub, date, timeSlot, notes, false)
}

func (s *Scheduler) book(ctx context.Context, sub *domain.Subscription, date string, timeSlot domain.TimeWindow, notes string, uniquePerSubscription bool) (*domain.DeliverySchedule, error) {
	delivery := &domain.DeliverySchedule{
		SubscriptionID: sub.ID,
		DeliveryDate:   date,
		TimeSlot:       timeSlot,
		Status:         domain.DeliveryStatusScheduled,
		DeliveryNotes:  notes,
	}
	notification := &domain.DeliveryNotification{
		Type:    domain.NotificationTypeScheduled,
		Content: fmt.Sprintf("您的配送已安排在 %s %s", date, timeSlot),
	}

	opts := InsertOptions{
		Capacity:              s.parameters.SlotCapacity,
		UniquePerSubscription: uniquePerSubscription,
	}
	if err := s.store.InsertDelivery(ctx, delivery, notification, opts); err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			metrics.CapacityRejections.WithLabelValues(timeSlot.Name()).Inc()
		}
		return nil, err
	}
	delivery.Notifications = []domain.DeliveryNotification{*notification}
	metrics.DeliveriesScheduled.WithLabelValues(timeSlot.Name()).Inc()

	// 预约已经成功，通知失败只记录警告
	if sub.ContactEmail != "" {
		if err := s.notifier.SendDeliveryConfirmation(ctx, sub.ContactEmail, date, timeSlot); err != nil {
			s.notificationFailed(delivery, domain.MailTypeDeliveryConfirmation, sub.ContactEmail, err)
		}
	}

	return delivery, nil
}

func (s *Scheduler) notificationFailed(delivery *domain.DeliverySchedule, mailType, address string, err error) {
	metrics.NotificationFailures.WithLabelValues(mailType).Inc()
	s.logger.Warn("配送通知发送失败", "deliveryID", delivery.ID, "type", mailType, "address", address, "error", err)
	delivery.NotificationWarning = fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err).Error()
}

func (s *Scheduler) validateNotes(notes string) error {
	if s.parameters.NotesMaxLength > 0 && utf8.RuneCountInString(notes) > s.parameters.NotesMaxLength {
		return fmt.Errorf("%w: 配送备注不能超过 %d 个字符", domain.ErrValidation, s.parameters.NotesMaxLength)
	}
	return nil
}

// History 按配送日期倒序返回订阅的所有配送及其通知
func (s *Scheduler) History(ctx context.Context, subscriptionID uuid.UUID) ([]*domain.DeliverySchedule, error) {
	return s.store.ListDeliveriesBySubscription(ctx, subscriptionID)
}
