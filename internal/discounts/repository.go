package discounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, code *models.DiscountCode) error
	List(ctx context.Context) ([]models.DiscountCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	DeactivateOthers(ctx context.Context, keep uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, code *models.DiscountCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repository) List(ctx context.Context) ([]models.DiscountCode, error) {
	var rows []models.DiscountCode
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("code ASC").Find(&rows).Error
	return rows, err
}

// FindByID returns nil when the code does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error) {
	var row models.DiscountCode
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *repository) DeactivateOthers(ctx context.Context, keep uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("id <> ? AND is_active = ?", keep, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DiscountCode{})
	return res.RowsAffected > 0, res.Error
}
