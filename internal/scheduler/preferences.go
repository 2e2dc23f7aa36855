package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

// GetPreferences 返回用户的配送偏好，从未设置过时返回空的默认值
func (s *Scheduler) GetPreferences(ctx context.Context, userID uuid.UUID) (*domain.DeliveryPreferences, error) {
	prefs, err := s.store.GetDeliveryPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DefaultDeliveryPreferences(), nil
		}
		return nil, err
	}
	return prefs, nil
}

// UpdatePreferences 整体覆盖用户的配送偏好
func (s *Scheduler) UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs *domain.DeliveryPreferences) error {
	normalized, err := s.NormalizePreferences(prefs)
	if err != nil {
		return err
	}
	return s.store.UpsertDeliveryPreferences(ctx, userID, normalized)
}

// NormalizePreferences 校验并规范化配送偏好，星期统一为小写英文名，时段统一为时间范围，重复项只保留一个
func (s *Scheduler) NormalizePreferences(prefs *domain.DeliveryPreferences) (*domain.DeliveryPreferences, error) {
	if prefs == nil {
		return nil, fmt.Errorf("%w: 配送偏好不能为空", domain.ErrValidation)
	}

	out := &domain.DeliveryPreferences{
		PreferredDays:         make([]string, 0, len(prefs.PreferredDays)),
		PreferredTimeSlots:    make([]domain.TimeWindow, 0, len(prefs.PreferredTimeSlots)),
		DeliveryNotes:         prefs.DeliveryNotes,
		ContactBeforeDelivery: prefs.ContactBeforeDelivery,
	}

	for _, name := range prefs.PreferredDays {
		day, err := domain.WeekdayFromName(name)
		if err != nil {
			return nil, err
		}
		name = domain.WeekdayName(day)
		if !slices.Contains(out.PreferredDays, name) {
			out.PreferredDays = append(out.PreferredDays, name)
		}
	}

	for _, slot := range prefs.PreferredTimeSlots {
		window, err := domain.ParseTimeWindow(strings.TrimSpace(string(slot)))
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out.PreferredTimeSlots, window) {
			out.PreferredTimeSlots = append(out.PreferredTimeSlots, window)
		}
	}

	if err := s.validateNotes(prefs.DeliveryNotes); err != nil {
		return nil, err
	}

	return out, nil
}
