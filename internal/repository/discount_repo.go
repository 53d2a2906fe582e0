package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jojoprompts/internal/domain"
	"jojoprompts/internal/models"
	"jojoprompts/pkg/checkout"

	"gorm.io/gorm"
)

type DiscountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// ValidateDiscountCode checks the code against the stored discount rules.
// It implements checkout.DiscountValidator; the one-shot session gate stays
// with the guard, this only answers validity.
func (r *DiscountRepository) ValidateDiscountCode(ctx context.Context, code, planID, userID string) (*checkout.AppliedDiscount, error) {
	var d models.DiscountCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invalid discount code")
	}
	if err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, fmt.Errorf("this discount code is no longer active")
	}
	if d.ExpiresAt != nil && d.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("this discount code has expired")
	}
	if d.UsageLimit > 0 && d.TimesUsed >= d.UsageLimit {
		return nil, fmt.Errorf("this discount code has reached its usage limit")
	}
	if d.Type != domain.DiscountTypePercentage && d.Type != domain.DiscountTypeFixed {
		return nil, fmt.Errorf("this discount code is not usable")
	}
	return &checkout.AppliedDiscount{
		ID:    d.ID,
		Code:  d.Code,
		Type:  d.Type,
		Value: d.Value,
	}, nil
}

// IncrementUsage bumps the redemption counter after a settled payment.
// Implements checkout.DiscountRedeemer.
func (r *DiscountRepository) IncrementUsage(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("id = ?", id).
		UpdateColumn("times_used", gorm.Expr("times_used + 1")).Error
}
