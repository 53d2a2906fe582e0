package models

import "time"

type DiscountCode struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	Code       string     `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Type       string     `gorm:"size:20;not null" json:"type"` // percentage, fixed
	Value      int64      `gorm:"not null" json:"value"`        // percent points or cents
	IsActive   bool       `gorm:"default:true;index" json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at"`
	UsageLimit int        `gorm:"default:0" json:"usage_limit"` // 0 = unlimited
	TimesUsed  int        `gorm:"default:0" json:"times_used"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (DiscountCode) TableName() string {
	return "discount_codes"
}
