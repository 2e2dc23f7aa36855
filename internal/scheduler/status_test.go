package scheduler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
	"go.uber.org/mock/gomock"
)

func (f *fixture) book(t *testing.T) *domain.DeliverySchedule {
	t.Helper()
	f.notifier.EXPECT().SendDeliveryConfirmation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	delivery, err := f.scheduler.Schedule(context.Background(), f.sub.ID, "2025-03-10", domain.TimeWindowMorning, "")
	require.NoError(t, err)
	return delivery
}

func TestTransition_NotifiesOnOutForDeliveryAndDelivered(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	delivery := f.book(t)

	gomock.InOrder(
		f.notifier.EXPECT().
			SendDeliveryStatusUpdate(gomock.Any(), "lihua@example.com", domain.DeliveryStatusOutForDelivery, "2025-03-10", domain.TimeWindowMorning).
			Return(nil),
		f.notifier.EXPECT().
			SendDeliveryStatusUpdate(gomock.Any(), "lihua@example.com", domain.DeliveryStatusDelivered, "2025-03-10", domain.TimeWindowMorning).
			Return(nil),
	)

	updated, err := f.scheduler.Transition(ctx, delivery.ID, "out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusOutForDelivery, updated.Status)

	updated, err = f.scheduler.Transition(ctx, delivery.ID, "delivered")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusDelivered, updated.Status)

	notifications := f.store.Notifications(delivery.ID)
	require.Len(t, notifications, 3)
	assert.Equal(t, domain.NotificationTypeScheduled, notifications[0].Type)
	assert.Equal(t, domain.NotificationType("out_for_delivery"), notifications[1].Type)
	assert.Equal(t, domain.NotificationType("delivered"), notifications[2].Type)
}

func TestTransition_FailedRecordsNotificationWithoutNotifying(t *testing.T) {
	f := newFixture(t, nil)
	delivery := f.book(t)

	updated, err := f.scheduler.Transition(context.Background(), delivery.ID, "failed")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusFailed, updated.Status)
	assert.Len(t, f.store.Notifications(delivery.ID), 2)
}

func TestTransition_InvalidStatus(t *testing.T) {
	f := newFixture(t, nil)
	delivery := f.book(t)

	for _, status := range []string{"", "cancelled", "DELIVERED"} {
		_, err := f.scheduler.Transition(context.Background(), delivery.ID, status)
		assert.ErrorIs(t, err, domain.ErrInvalidStatus, status)
	}
	assert.Len(t, f.store.Notifications(delivery.ID), 1)
}

func TestTransition_UnknownDelivery(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.scheduler.Transition(context.Background(), uuid.New(), "delivered")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition_StrictModeRejectsBackwardMoves(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	delivery := f.book(t)

	_, err := f.scheduler.Transition(ctx, delivery.ID, "failed")
	require.NoError(t, err)

	tests := []string{"scheduled", "out_for_delivery", "delivered", "failed"}
	for _, to := range tests {
		_, err := f.scheduler.Transition(ctx, delivery.ID, to)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, to)
	}
	assert.Len(t, f.store.Notifications(delivery.ID), 2)
}

func TestTransition_PermissiveModeAcceptsAnyStatus(t *testing.T) {
	f := newFixture(t, func(p *scheduler.Parameters) { p.StrictTransitions = false })
	ctx := context.Background()
	delivery := f.book(t)

	f.notifier.EXPECT().SendDeliveryStatusUpdate(gomock.Any(), gomock.Any(), domain.DeliveryStatusDelivered, gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.scheduler.Transition(ctx, delivery.ID, "delivered")
	require.NoError(t, err)
	updated, err := f.scheduler.Transition(ctx, delivery.ID, "scheduled")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusScheduled, updated.Status)
}

func TestTransition_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, nil)
	delivery := f.book(t)

	f.notifier.EXPECT().
		SendDeliveryStatusUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("smtp down"))

	updated, err := f.scheduler.Transition(context.Background(), delivery.ID, "out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusOutForDelivery, updated.Status)
	assert.NotEmpty(t, updated.NotificationWarning)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.DeliveryStatus
		want     bool
	}{
		{domain.DeliveryStatusScheduled, domain.DeliveryStatusOutForDelivery, true},
		{domain.DeliveryStatusScheduled, domain.DeliveryStatusFailed, true},
		{domain.DeliveryStatusScheduled, domain.DeliveryStatusDelivered, false},
		{domain.DeliveryStatusOutForDelivery, domain.DeliveryStatusDelivered, true},
		{domain.DeliveryStatusOutForDelivery, domain.DeliveryStatusScheduled, false},
		{domain.DeliveryStatusDelivered, domain.DeliveryStatusFailed, true},
		{domain.DeliveryStatusDelivered, domain.DeliveryStatusOutForDelivery, false},
		{domain.DeliveryStatusFailed, domain.DeliveryStatusScheduled, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, scheduler.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
