package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/internal/pricing"
	"github.com/angelmondragon/crumbly-backend/pkg/db"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/crumbly-backend/pkg/pagination"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

// ErrOrderNotFound is returned for unknown order ids and references.
var ErrOrderNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type deliveryDateValidator interface {
	ValidateDeliveryDate(ctx context.Context, date types.Date, now time.Time) error
}

type priceResolver interface {
	Price(ctx context.Context, in pricing.PriceInput) (*pricing.Breakdown, error)
}

type createdCounter interface {
	OrderCreated()
}

type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Calendar deliveryDateValidator
	Pricing  priceResolver
	Logger   *logger.Logger
	Metrics  createdCounter
	Prefix   string
	Location *time.Location
	Clock    func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	calendar deliveryDateValidator
	pricing  priceResolver
	logg     *logger.Logger
	metrics  createdCounter
	prefix   string
	loc      *time.Location
	now      func() time.Time
}

// NewService wires the order aggregate.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Calendar == nil {
		return nil, fmt.Errorf("calendar service required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing resolver required")
	}
	prefix := strings.ToUpper(strings.TrimSpace(params.Prefix))
	if prefix == "" {
		prefix = "CRB"
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		calendar: params.Calendar,
		pricing:  params.Pricing,
		logg:     params.Logger,
		metrics:  params.Metrics,
		prefix:   prefix,
		loc:      loc,
		now:      clock,
	}, nil
}

// FormatOrderNumber renders PREFIX-YEAR-NNNN; the counter widens past 9999.
func FormatOrderNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	now := s.now()

	if subtotal := itemsSubtotal(input.Items); subtotal != input.Subtotal {
		return nil, pkgerrors.Field("subtotal", fmt.Sprintf("subtotal does not match items (expected %d)", subtotal))
	}
	if err := s.calendar.ValidateDeliveryDate(ctx, input.DeliveryDate, now); err != nil {
		return nil, err
	}

	breakdown, err := s.pricing.Price(ctx, pricing.PriceInput{
		DeliveryMethod: input.DeliveryMethod,
		Department:     input.ShippingDepartment,
		City:           input.ShippingCity,
		Subtotal:       input.Subtotal,
		DiscountCode:   input.DiscountCode,
		Email:          input.CustomerEmail,
		Now:            now,
	})
	if err != nil {
		if errors.Is(err, pricing.ErrCodeNotFound) {
			return nil, pkgerrors.Field("discountCode", "discount code is not valid")
		}
		return nil, err
	}
	if err := compareTotals(input, breakdown); err != nil {
		return nil, err
	}

	order := buildOrder(input, breakdown)
	year := now.In(s.loc).Year()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		seq, err := repo.NextSequence(ctx, year)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate order number")
		}
		order.OrderNumber = FormatOrderNumber(s.prefix, year, seq)

		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		if order.DiscountCode != nil {
			err := repo.CreateRedemption(ctx, &models.DiscountRedemption{
				Email:   order.CustomerEmail,
				Code:    *order.DiscountCode,
				OrderID: order.ID,
			})
			if db.IsUniqueViolation(err, "uq_discount_redemptions_email_code", "discount_redemptions.email") {
				return pricing.ErrCodeAlreadyUsed
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record discount redemption")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Subject: order.CustomerEmail, Role: "customer"},
			Data: payloads.OrderCreatedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				CustomerEmail:  order.CustomerEmail,
				DeliveryMethod: order.DeliveryMethod,
				DeliveryDate:   order.DeliveryDate,
				Subtotal:       order.Subtotal,
				ShippingCost:   order.ShippingCost,
				DiscountCode:   order.DiscountCode,
				DiscountAmount: order.DiscountAmount,
				Total:          order.Total,
				ItemCount:      len(order.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrderCreated()
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"order_number": order.OrderNumber, "total": order.Total})
		s.logg.Info(logCtx, "order created")
	}
	return order, nil
}

// compareTotals rejects a submission whose client-side figures disagree with
// the server-side price.
func compareTotals(input CreateOrderInput, b *pricing.Breakdown) error {
	if input.ShippingCost != b.Shipping.Cost {
		return pkgerrors.Field("shippingCost", fmt.Sprintf("shipping cost does not match (expected %d)", b.Shipping.Cost))
	}
	if input.DiscountAmount != b.DiscountAmount {
		return pkgerrors.Field("discountAmount", fmt.Sprintf("discount amount does not match (expected %d)", b.DiscountAmount))
	}
	if input.Total != b.Total {
		return pkgerrors.Field("total", fmt.Sprintf("total does not match (expected %d)", b.Total))
	}
	return nil
}

func buildOrder(input CreateOrderInput, b *pricing.Breakdown) *models.Order {
	order := &models.Order{
		CustomerName:       input.CustomerName,
		CustomerEmail:      input.CustomerEmail,
		CustomerPhone:      input.CustomerPhone,
		CustomerNationalID: input.CustomerNationalID,
		DeliveryMethod:     input.DeliveryMethod,
		DeliveryDate:       input.DeliveryDate,
		Subtotal:           b.Subtotal,
		ShippingCost:       b.Shipping.Cost,
		DiscountCode:       b.DiscountCode,
		DiscountAmount:     b.DiscountAmount,
		Total:              b.Total,
		PaymentMethod:      input.PaymentMethod,
		PaymentStatus:      enums.PaymentStatusPending,
		Status:             enums.OrderStatusPending,
	}
	if input.DeliveryMethod == enums.DeliveryMethodDelivery {
		order.ShippingAddress = optional(input.ShippingAddress)
		order.ShippingCity = optional(input.ShippingCity)
		order.ShippingDepartment = optional(input.ShippingDepartment)
	}
	order.ShippingNotes = optional(input.ShippingNotes)

	order.Items = make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			SizeLabel: optional(item.SizeLabel),
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  optional(item.ImageURL),
		})
	}
	return order
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Field("cursor", err.Error())
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.Field("status", "unknown order status")
	}
	if filters.PaymentStatus != nil && !filters.PaymentStatus.IsValid() {
		return nil, pkgerrors.Field("paymentStatus", "unknown payment status")
	}

	rows, next, err := s.repo.List(ctx, ListParams{
		Params:        params,
		Cursor:        cursor,
		Status:        filters.Status,
		PaymentStatus: filters.PaymentStatus,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	out := &OrderList{Orders: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		out.Orders = append(out.Orders, NewOrderDTO(&rows[i]))
	}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

// UpdateStatus is the administrator override of the fulfillment status. Any
// status may follow any other; the write still only lands if the status did
// not change underneath.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, to enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.Field("status", "unknown order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if order == nil {
			return ErrOrderNotFound
		}
		updated = order
		if order.Status == to {
			return nil
		}

		from := order.Status
		ok, err := repo.UpdateStatus(ctx, id, from, to)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently, reload and retry")
		}
		order.Status = to

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          to,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
