package models

import (
	"time"

	"gorm.io/gorm"
)

type Payment struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SessionID     string         `gorm:"size:36;not null;index" json:"session_id"`
	UserID        string         `gorm:"size:36;not null;index" json:"user_id"`
	PlanID        string         `gorm:"size:36;not null;index" json:"plan_id"`
	AmountCents   int64          `gorm:"not null" json:"amount_cents"`
	Currency      string         `gorm:"size:3;default:'USD'" json:"currency"`
	Provider      string         `gorm:"size:50;not null" json:"provider"`
	ProviderRef   string         `gorm:"size:255;uniqueIndex" json:"provider_ref"`
	Status        string         `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED, CANCELLED, EXPIRED
	TransactionID string         `gorm:"size:255" json:"transaction_id"`
	FailReason    string         `gorm:"size:500" json:"fail_reason,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
