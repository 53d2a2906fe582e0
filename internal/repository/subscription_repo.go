package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"jojoprompts/internal/domain"
	"jojoprompts/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db       *gorm.DB
	planRepo *PlanRepository
}

func NewSubscriptionRepository(db *gorm.DB, planRepo *PlanRepository) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, planRepo: planRepo}
}

// Activate turns a settled payment into an active subscription. Implements
// checkout.SubscriptionActivator. Idempotent on the transaction id: the
// poller may observe a settled payment more than once, and a replayed
// activation must return the existing subscription instead of a second one.
func (r *SubscriptionRepository) Activate(ctx context.Context, userID, planID, transactionID string) (string, error) {
	var existing models.Subscription
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	now := time.Now()
	sub := &models.Subscription{
		ID:            uuid.NewString(),
		UserID:        userID,
		PlanID:        planID,
		Status:        domain.SubscriptionStatusActive,
		TransactionID: transactionID,
		StartsAt:      now,
	}
	if plan, perr := r.planRepo.GetByID(planID); perr == nil && plan != nil && plan.DurationDays > 0 {
		ends := now.AddDate(0, 0, plan.DurationDays)
		sub.EndsAt = &ends
	}
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return "", err
	}
	log.Printf("[Subscription] activated %s user=%s plan=%s", sub.ID, userID, planID)
	return sub.ID, nil
}

func (r *SubscriptionRepository) GetActiveByUser(userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ? AND status = ?", userID, domain.SubscriptionStatusActive).
		Order("created_at desc").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
