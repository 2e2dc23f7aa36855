package domain

import (
	"fmt"
	"strings"
	"time"
)

var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayFromName 将 monday 之类的名称转换为 0-6 的数字（周日为 0）
func WeekdayFromName(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range weekdayNames {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: 无法识别的星期 %q", ErrValidation, name)
}

func WeekdayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return weekdayNames[day]
}

type DeliveryPreferences struct {
	PreferredDays         []string     `json:"preferredDays"`
	PreferredTimeSlots    []TimeWindow `json:"preferredTimeSlots"`
	DeliveryNotes         string       `json:"deliveryNotes"`
	ContactBeforeDelivery bool         `json:"contactBeforeDelivery"`
	UpdatedAt             *time.Time   `json:"updatedAt,omitempty"`
}

// DefaultDeliveryPreferences 是用户从未设置过偏好时返回的值
func DefaultDeliveryPreferences() *DeliveryPreferences {
	return &DeliveryPreferences{
		PreferredDays:      []string{},
		PreferredTimeSlots: []TimeWindow{},
	}
}
