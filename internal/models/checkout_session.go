package models

import "time"

// CheckoutSession is the durable backup of an in-flight checkout context.
// It is what survives the redirect provider's full-page navigation: one row
// per session id, last write wins.
type CheckoutSession struct {
	SessionID string    `gorm:"primaryKey;size:36" json:"session_id"`
	Payload   string    `gorm:"type:text;not null" json:"payload"` // JSON CheckoutContext
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CheckoutSession) TableName() string {
	return "checkout_sessions"
}
