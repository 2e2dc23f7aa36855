package domain

import "github.com/google/uuid"

// Subscription 只包含排期需要的订阅字段，订阅本身由套餐服务维护
type Subscription struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userID"`
	Status       string    `json:"status"`
	ContactEmail string    `json:"contactEmail"`
}
