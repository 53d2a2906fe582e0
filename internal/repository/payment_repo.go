package repository

import (
	"time"

	"jojoprompts/internal/domain"
	"jojoprompts/internal/models"
	"jojoprompts/pkg/checkout"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreatePending records an initiated payment. Implements checkout.PaymentStore.
func (r *PaymentRepository) CreatePending(sessionID, userID, planID string, provider checkout.ProviderID, providerRef string, amountCents int64, currency string) error {
	p := &models.Payment{
		SessionID:   sessionID,
		UserID:      userID,
		PlanID:      planID,
		AmountCents: amountCents,
		Currency:    currency,
		Provider:    string(provider),
		ProviderRef: providerRef,
		Status:      domain.PaymentStatusPending,
	}
	return r.db.Create(p).Error
}

// MarkCompleted settles the payment identified by its provider reference.
func (r *PaymentRepository) MarkCompleted(providerRef, transactionID string) error {
	now := time.Now()
	return r.db.Model(&models.Payment{}).
		Where("provider_ref = ? AND status = ?", providerRef, domain.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":         domain.PaymentStatusCompleted,
			"transaction_id": transactionID,
			"completed_at":   &now,
		}).Error
}

// MarkFailed records a terminal failure for the payment.
func (r *PaymentRepository) MarkFailed(providerRef, reason string) error {
	return r.db.Model(&models.Payment{}).
		Where("provider_ref = ? AND status = ?", providerRef, domain.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":      domain.PaymentStatusFailed,
			"fail_reason": reason,
		}).Error
}

// ListByUser returns the user's most recent payments, newest first.
func (r *PaymentRepository) ListByUser(userID string, limit int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Limit(limit).Find(&payments).Error
	return payments, err
}
