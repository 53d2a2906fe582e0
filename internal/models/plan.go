package models

import "time"

// Plan is a purchasable subscription tier of the prompt marketplace.
type Plan struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	PriceCents   int64     `gorm:"not null" json:"price_cents"`
	Currency     string    `gorm:"size:3;default:'USD'" json:"currency"`
	DurationDays int       `gorm:"not null" json:"duration_days"` // 0 = lifetime
	Features     string    `gorm:"type:text" json:"features"`     // JSON
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}
