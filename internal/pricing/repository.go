package pricing

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
)

// Repository reads the pricing inputs kept in the store.
type Repository interface {
	ActiveFreeShippingRules(ctx context.Context) ([]models.FreeShippingRule, error)
	FindActiveDiscountCode(ctx context.Context, code string) (*models.DiscountCode, error)
	RedemptionExists(ctx context.Context, email, code string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ActiveFreeShippingRules(ctx context.Context) ([]models.FreeShippingRule, error) {
	var rules []models.FreeShippingRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority DESC").
		Order("created_at ASC").
		Find(&rules).Error
	return rules, err
}

// FindActiveDiscountCode returns nil when no active code matches.
func (r *repository) FindActiveDiscountCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var row models.DiscountCode
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) RedemptionExists(ctx context.Context, email, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DiscountRedemption{}).
		Where("email = ? AND code = ?", email, code).
		Count(&count).Error
	return count > 0, err
}
