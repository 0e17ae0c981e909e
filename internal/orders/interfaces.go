package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextSequence(ctx context.Context, year int) (int64, error)
	Create(ctx context.Context, order *models.Order) error
	CreateRedemption(ctx context.Context, redemption *models.DiscountRedemption) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
	AssignReference(ctx context.Context, id uuid.UUID, observed enums.PaymentStatus, reference string) (bool, error)
	ApplySettlement(ctx context.Context, update SettlementUpdate) (bool, error)
}

// SettlementUpdate is a compare-and-swap write of an order's payment state.
// The row changes only if it still matches every Observed* field.
type SettlementUpdate struct {
	OrderID           uuid.UUID
	ObservedPayment   enums.PaymentStatus
	ObservedStatus    enums.OrderStatus
	ObservedReference *string
	Payment           enums.PaymentStatus
	Status            enums.OrderStatus
	Reference         *string
	MarkPaid          bool
}

// ListParams filters the admin order list.
type ListParams struct {
	pagination.Params
	Cursor        *pagination.Cursor
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// Service exposes the order aggregate.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error)
}
