package scheduler

import (
	"context"
	"iter"
	"time"

	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

// Slots 按日期优先、时段次之的顺序产出 [start, end] 内的所有时段
func Slots(start, end time.Time) iter.Seq[domain.SlotKey] {
	windows := domain.TimeWindows()
	return func(yield func(domain.SlotKey) bool) {
		for day := range eachDay(start, end) {
			date := day.Format(domain.DateLayout)
			for _, window := range windows {
				if !yield(domain.SlotKey{Date: date, TimeWindow: window}) {
					return
				}
			}
		}
	}
}

// GetAvailableSlots 计算 [startDate, endDate] 内每个时段是否还能预约，结果每次都重新计算
func (s *Scheduler) GetAvailableSlots(ctx context.Context, startDate, endDate string) ([]domain.DeliverySlot, error) {
	start, err := parseDate(startDate, s.parameters.Location)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(endDate, s.parameters.Location)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.CountBookings(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	slots := make([]domain.DeliverySlot, 0)
	for key := range Slots(start, end) {
		slots = append(slots, domain.DeliverySlot{
			ID:        key.ID(),
			Date:      key.Date,
			TimeSlot:  key.TimeWindow,
			Available: counts[key] < s.parameters.SlotCapacity,
		})
	}

	return slots, nil
}
