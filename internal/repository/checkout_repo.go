package repository

import (
	"errors"

	"jojoprompts/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutSessionRepository is the database-backed checkout.ContextStorage.
// One row per session id; Put is an upsert so the latest backup wins.
type CheckoutSessionRepository struct {
	db *gorm.DB
}

func NewCheckoutSessionRepository(db *gorm.DB) *CheckoutSessionRepository {
	return &CheckoutSessionRepository{db: db}
}

func (r *CheckoutSessionRepository) Put(sessionID string, payload []byte) error {
	rec := &models.CheckoutSession{
		SessionID: sessionID,
		Payload:   string(payload),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(rec).Error
}

func (r *CheckoutSessionRepository) Get(sessionID string) ([]byte, error) {
	var rec models.CheckoutSession
	err := r.db.First(&rec, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(rec.Payload), nil
}

func (r *CheckoutSessionRepository) Delete(sessionID string) error {
	return r.db.Delete(&models.CheckoutSession{}, "session_id = ?", sessionID).Error
}
