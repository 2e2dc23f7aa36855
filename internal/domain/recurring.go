package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return f, nil
	}
	return "", fmt.Errorf("%w: 无法识别的配送频率 %q", ErrValidation, s)
}

type RecurringDeliveryPattern struct {
	ID                uuid.UUID  `json:"id"`
	SubscriptionID    uuid.UUID  `json:"subscriptionID"`
	Frequency         Frequency  `json:"frequency"`
	DaysOfWeek        []int      `json:"dayOfWeek"` // 0 表示周日
	PreferredTimeSlot TimeWindow `json:"preferredTimeSlot"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type ExpansionStatus string

const (
	ExpansionScheduled ExpansionStatus = "scheduled"
	ExpansionSkipped   ExpansionStatus = "skipped" // 该订阅在这个时段已经有配送
	ExpansionFailed    ExpansionStatus = "failed"
)

type ExpansionOutcome struct {
	Date       string          `json:"date"`
	Status     ExpansionStatus `json:"status"`
	DeliveryID *uuid.UUID      `json:"deliveryID,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type ExpansionReport struct {
	PatternID uuid.UUID          `json:"patternID"`
	Active    bool               `json:"active"`
	Outcomes  []ExpansionOutcome `json:"outcomes"`
	// 周期配送已创建但未能展开时的提示，可以稍后重新展开
	Warning string `json:"warning,omitempty"`
}

func (r *ExpansionReport) Count(status ExpansionStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
