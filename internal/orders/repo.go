package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	"github.com/angelmondragon/crumbly-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

const nextSequenceSQL = `
INSERT INTO order_sequences (year, last_value, updated_at)
VALUES (?, 1, ?)
ON CONFLICT (year) DO UPDATE
SET last_value = order_sequences.last_value + 1, updated_at = excluded.updated_at
RETURNING last_value`

// NextSequence increments and returns the counter for year. The upsert takes
// a row lock on Postgres, so concurrent checkouts serialise on the year row.
func (r *repository) NextSequence(ctx context.Context, year int) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(nextSequenceSQL, year, time.Now().UTC()).Scan(&value).Error
	return value, err
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.DiscountRedemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

// FindByID returns nil when the order does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByReference matches the stored payment transaction reference.
func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	if reference == "" {
		return nil, nil
	}
	return r.findOne(ctx, "payment_transaction_reference = ?", reference)
}

func (r *repository) findOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where(query, args...).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}
	if params.Cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		last := rows[normalized-1]
		return rows[:normalized], &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

// UpdateStatus moves the fulfillment status only if it still equals from.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

// AssignReference stores a new gateway reference while the payment status is
// still observed. A FAILED order goes back to PENDING for the retry.
func (r *repository) AssignReference(ctx context.Context, id uuid.UUID, observed enums.PaymentStatus, reference string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, observed).
		Updates(map[string]any{
			"payment_transaction_reference": reference,
			"payment_status":                enums.PaymentStatusPending,
			"updated_at":                    time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) ApplySettlement(ctx context.Context, update SettlementUpdate) (bool, error) {
	now := time.Now().UTC()
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND status = ?", update.OrderID, update.ObservedPayment, update.ObservedStatus)
	if update.ObservedReference == nil {
		query = query.Where("payment_transaction_reference IS NULL")
	} else {
		query = query.Where("payment_transaction_reference = ?", *update.ObservedReference)
	}

	values := map[string]any{
		"payment_status":                update.Payment,
		"status":                        update.Status,
		"payment_transaction_reference": update.Reference,
		"updated_at":                    now,
	}
	if update.MarkPaid {
		values["paid_at"] = now
	}
	res := query.Updates(values)
	return res.RowsAffected == 1, res.Error
}
