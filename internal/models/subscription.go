package models

import "time"

type Subscription struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	UserID        string     `gorm:"size:36;not null;index" json:"user_id"`
	PlanID        string     `gorm:"size:36;not null;index" json:"plan_id"`
	Status        string     `gorm:"size:20;not null;index" json:"status"` // ACTIVE, EXPIRED, CANCELLED
	TransactionID string     `gorm:"size:255;uniqueIndex" json:"transaction_id"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at"` // nil = lifetime
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
