package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout 是配送日期在接口和数据库中使用的格式
const DateLayout = "2006-01-02"

type TimeWindow string

const (
	TimeWindowMorning   TimeWindow = "09:00-12:00"
	TimeWindowAfternoon TimeWindow = "13:00-16:00"
	TimeWindowEvening   TimeWindow = "17:00-20:00"
)

// 每天固定的三个配送时段，顺序即生成时段时的顺序
var timeWindowTable = [...]struct {
	name   string
	window TimeWindow
}{
	{"morning", TimeWindowMorning},
	{"afternoon", TimeWindowAfternoon},
	{"evening", TimeWindowEvening},
}

// TimeWindows 按固定顺序返回所有配送时段
func TimeWindows() []TimeWindow {
	windows := make([]TimeWindow, 0, len(timeWindowTable))
	for _, entry := range timeWindowTable {
		windows = append(windows, entry.window)
	}
	return windows
}

// ParseTimeWindow 同时接受时段名（morning）和时段范围（09:00-12:00）
func ParseTimeWindow(s string) (TimeWindow, error) {
	s = strings.TrimSpace(s)
	for _, entry := range timeWindowTable {
		if strings.EqualFold(s, entry.name) || s == string(entry.window) {
			return entry.window, nil
		}
	}
	return "", fmt.Errorf("%w: 无法识别的配送时段 %q", ErrValidation, s)
}

func (w TimeWindow) Name() string {
	for _, entry := range timeWindowTable {
		if entry.window == w {
			return entry.name
		}
	}
	return ""
}

func (w TimeWindow) IsValid() bool {
	return w.Name() != ""
}

type DeliveryStatus string

const (
	DeliveryStatusScheduled      DeliveryStatus = "scheduled"
	DeliveryStatusOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryStatusDelivered      DeliveryStatus = "delivered"
	DeliveryStatusFailed         DeliveryStatus = "failed"
)

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	status := DeliveryStatus(s)
	switch status {
	case DeliveryStatusScheduled, DeliveryStatusOutForDelivery, DeliveryStatusDelivered, DeliveryStatusFailed:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusFailed
}

// SlotKey 唯一标识一个配送时段
type SlotKey struct {
	Date       string
	TimeWindow TimeWindow
}

func (k SlotKey) ID() string {
	return k.Date + "-" + string(k.TimeWindow)
}

type DeliverySlot struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	TimeSlot  TimeWindow `json:"timeSlot"`
	Available bool       `json:"available"`
}

type DeliverySchedule struct {
	ID             uuid.UUID              `json:"id"`
	SubscriptionID uuid.UUID              `json:"subscriptionID"`
	DeliveryDate   string                 `json:"deliveryDate"`
	TimeSlot       TimeWindow             `json:"timeSlot"`
	Status         DeliveryStatus         `json:"status"`
	DeliveryNotes  string                 `json:"deliveryNotes,omitempty"`
	Notifications  []DeliveryNotification `json:"notifications,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`

	// 通知发送失败时的提示，不落库
	NotificationWarning string `json:"notificationWarning,omitempty"`
}

func (d *DeliverySchedule) Slot() SlotKey {
	return SlotKey{Date: d.DeliveryDate, TimeWindow: d.TimeSlot}
}

type NotificationType string

const (
	NotificationTypeScheduled      NotificationType = "scheduled"
	NotificationTypeOutForDelivery NotificationType = "out_for_delivery"
	NotificationTypeDelivered      NotificationType = "delivered"
	NotificationTypeFailed         NotificationType = "failed"
	NotificationTypeReminder       NotificationType = "reminder"
)

type DeliveryNotification struct {
	ID         uuid.UUID        `json:"id"`
	DeliveryID uuid.UUID        `json:"deliveryID"`
	Type       NotificationType `json:"type"`
	Content    string           `json:"content"`
	SentAt     time.Time        `json:"sentAt"`
}
