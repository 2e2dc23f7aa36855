package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/metrics"
)

const recurringDeliveryNote = "周期配送"

// 展开失败的原因不是业务错误时返回给调用者的提示
const expansionInternalError = "服务器内部错误"

// PatternInput 是创建周期配送时调用者提供的内容，缺省的星期和时段会从用户的配送偏好中补齐
type PatternInput struct {
	Frequency         string
	DaysOfWeek        []int
	PreferredTimeSlot string
}

// SetupRecurring 创建周期配送并立即展开
func (s *Scheduler) SetupRecurring(ctx context.Context, subscriptionID uuid.UUID, input PatternInput) (*domain.RecurringDeliveryPattern, *domain.ExpansionReport, error) {
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, nil, err
	}

	if len(input.DaysOfWeek) == 0 || input.PreferredTimeSlot == "" {
		if err := s.applyPreferenceDefaults(ctx, sub.UserID, &input); err != nil {
			return nil, nil, err
		}
	}

	pattern, err := buildPattern(sub.ID, input)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.CreateRecurringDelivery(ctx, pattern); err != nil {
		return nil, nil, err
	}

	// 周期配送已经保存，展开失败时不能让调用者以为创建失败而重复创建
	report, err := s.Expand(ctx, pattern.ID)
	if err != nil {
		s.logger.Error("周期配送已创建但展开失败", "patternID", pattern.ID, "error", err)
		report = &domain.ExpansionReport{
			PatternID: pattern.ID,
			Active:    pattern.Active,
			Outcomes:  []domain.ExpansionOutcome{},
			Warning:   fmt.Errorf("%w: %s", domain.ErrExpansionFailed, expansionFailureReason(err)).Error(),
		}
	}

	return pattern, report, nil
}

func (s *Scheduler) applyPreferenceDefaults(ctx context.Context, userID uuid.UUID, input *PatternInput) error {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return err
	}

	if len(input.DaysOfWeek) == 0 {
		for _, name := range prefs.PreferredDays {
			day, err := domain.WeekdayFromName(name)
			if err != nil {
				continue
			}
			input.DaysOfWeek = append(input.DaysOfWeek, day)
		}
	}
	if input.PreferredTimeSlot == "" && len(prefs.PreferredTimeSlots) > 0 {
		input.PreferredTimeSlot = string(prefs.PreferredTimeSlots[0])
	}

	return nil
}

func buildPattern(subscriptionID uuid.UUID, input PatternInput) (*domain.RecurringDeliveryPattern, error) {
	frequency, err := domain.ParseFrequency(input.Frequency)
	if err != nil {
		return nil, err
	}

	timeSlot, err := domain.ParseTimeWindow(input.PreferredTimeSlot)
	if err != nil {
		return nil, err
	}

	if len(input.DaysOfWeek) == 0 {
		return nil, fmt.Errorf("%w: 至少需要选择一个配送日", domain.ErrValidation)
	}
	days := make([]int, 0, len(input.DaysOfWeek))
	for _, day := range input.DaysOfWeek {
		if day < 0 || day > 6 {
			return nil, fmt.Errorf("%w: 星期 %d 超出范围 0-6", domain.ErrValidation, day)
		}
		if !slices.Contains(days, day) {
			days = append(days, day)
		}
	}
	slices.Sort(days)

	return &domain.RecurringDeliveryPattern{
		SubscriptionID:    subscriptionID,
		Frequency:         frequency,
		DaysOfWeek:        days,
		PreferredTimeSlot: timeSlot,
		Active:            true,
	}, nil
}

// Expand 将周期配送投射到未来 RecurrenceHorizonDays 天内的具体配送
// 单个日期失败不会中断其余日期，已经预约过的日期会被跳过
func (s *Scheduler) Expand(ctx context.Context, patternID uuid.UUID) (*domain.ExpansionReport, error) {
	pattern, err := s.store.GetRecurringDelivery(ctx, patternID)
	if err != nil {
		return nil, err
	}

	report := &domain.ExpansionReport{
		PatternID: pattern.ID,
		Active:    pattern.Active,
		Outcomes:  []domain.ExpansionOutcome{},
	}
	if !pattern.Active {
		return report, nil
	}

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, "recurring_delivery_expansion_"+pattern.ID.String(), s.parameters.ExpansionLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrExpansionInProgress
		}
		defer unlock()
	}

	sub, err := s.store.GetSubscription(ctx, pattern.SubscriptionID)
	if err != nil {
		return nil, err
	}

	for _, day := range CandidateDates(pattern, s.now().In(s.parameters.Location), s.parameters.RecurrenceHorizonDays) {
		outcome := s.expandDate(ctx, sub, pattern, day.Format(domain.DateLayout))
		metrics.RecurringOutcomes.WithLabelValues(string(outcome.Status)).Inc()
		report.Outcomes = append(report.Outcomes, outcome)
	}

	s.logger.Info("已展开周期配送",
		"patternID", pattern.ID,
		"scheduled", report.Count(domain.ExpansionScheduled),
		"skipped", report.Count(domain.ExpansionSkipped),
		"failed", report.Count(domain.ExpansionFailed),
	)

	return report, nil
}

func (s *Scheduler) expandDate(ctx context.Context, sub *domain.Subscription, pattern *domain.RecurringDeliveryPattern, date string) domain.ExpansionOutcome {
	outcome := domain.ExpansionOutcome{Date: date}
	slot := domain.SlotKey{Date: date, TimeWindow: pattern.PreferredTimeSlot}

	exists, err := s.store.DeliveryExists(ctx, sub.ID, slot)
	if err != nil {
		outcome.Status = domain.ExpansionFailed
		outcome.Error = s.outcomeError(pattern, date, err)
		return outcome
	}
	if exists {
		outcome.Status = domain.ExpansionSkipped
		return outcome
	}

	delivery, err := s.book(ctx, sub, date, pattern.PreferredTimeSlot, recurringDeliveryNote, true)
	switch {
	case err == nil:
		outcome.Status = domain.ExpansionScheduled
		outcome.DeliveryID = &delivery.ID
	case errors.Is(err, domain.ErrAlreadyScheduled):
		outcome.Status = domain.ExpansionSkipped
	default:
		outcome.Status = domain.ExpansionFailed
		outcome.Error = s.outcomeError(pattern, date, err)
	}

	return outcome
}

// outcomeError 只把业务错误原样返回给调用者，其余错误记录日志后替换为通用提示
func (s *Scheduler) outcomeError(pattern *domain.RecurringDeliveryPattern, date string, err error) string {
	if isDomainError(err) {
		return err.Error()
	}
	s.logger.Error("周期配送展开失败", "patternID", pattern.ID, "date", date, "error", err)
	return expansionInternalError
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrCapacityExceeded) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound)
}

func expansionFailureReason(err error) string {
	if isDomainError(err) || errors.Is(err, domain.ErrExpansionInProgress) {
		return err.Error()
	}
	return expansionInternalError
}

// CandidateDates 返回 [今天, 今天+horizonDays] 内满足星期和频率条件且晚于 now 的日期
func CandidateDates(pattern *domain.RecurringDeliveryPattern, now time.Time, horizonDays int) []time.Time {
	end := now.AddDate(0, 0, horizonDays)

	dates := make([]time.Time, 0)
	for day := range eachDay(now, end) {
		if !slices.Contains(pattern.DaysOfWeek, int(day.Weekday())) {
			continue
		}
		if !matchesFrequency(pattern.Frequency, day) {
			continue
		}
		if !day.After(now) {
			continue
		}
		dates = append(dates, day)
	}

	return dates
}

func matchesFrequency(frequency domain.Frequency, day time.Time) bool {
	switch frequency {
	case domain.FrequencyWeekly:
		return true
	case domain.FrequencyBiweekly:
		// 按月内的半月交替，而不是从订阅开始严格每 14 天一次
		return (day.Day()/7)%2 == 0
	case domain.FrequencyMonthly:
		// 每月第一周
		return day.Day() <= 7
	}
	return false
}

// SetRecurringActive 启用或停用周期配送，停用后展开不会再产生新的配送
func (s *Scheduler) SetRecurringActive(ctx context.Context, patternID uuid.UUID, active bool) (*domain.RecurringDeliveryPattern, error) {
	if err := s.store.SetRecurringDeliveryActive(ctx, patternID, active); err != nil {
		return nil, err
	}
	return s.store.GetRecurringDelivery(ctx, patternID)
}

func (s *Scheduler) RecurringPattern(ctx context.Context, patternID uuid.UUID) (*domain.RecurringDeliveryPattern, error) {
	return s.store.GetRecurringDelivery(ctx, patternID)
}
