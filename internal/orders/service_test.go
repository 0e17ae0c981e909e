package orders

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/internal/pricing"
	"github.com/angelmondragon/crumbly-backend/pkg/db"
	"github.com/angelmondragon/crumbly-backend/pkg/db/dbtest"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/pagination"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

type stubCalendar struct {
	err   error
	dates []types.Date
}

func (s *stubCalendar) ValidateDeliveryDate(_ context.Context, date types.Date, _ time.Time) error {
	s.dates = append(s.dates, date)
	return s.err
}

// stubPricing applies a flat 10000 shipping for delivery and WELCOME10 as 10%.
type stubPricing struct{}

func (stubPricing) Price(_ context.Context, in pricing.PriceInput) (*pricing.Breakdown, error) {
	b := &pricing.Breakdown{Subtotal: in.Subtotal}
	if in.DeliveryMethod == enums.DeliveryMethodDelivery {
		b.Shipping = pricing.ShippingQuote{BaseCost: 10000, Cost: 10000}
	}
	switch pricing.NormalizeCode(in.DiscountCode) {
	case "":
	case "WELCOME10":
		code := "WELCOME10"
		b.DiscountCode = &code
		b.DiscountPercent = 10
		b.DiscountAmount = pricing.DiscountAmount(in.Subtotal, 10)
	default:
		return nil, pricing.ErrCodeNotFound
	}
	b.Total = b.Subtotal + b.Shipping.Cost - b.DiscountAmount
	return b, nil
}

type countingMetrics struct{ created int }

func (m *countingMetrics) OrderCreated() { m.created++ }

var serviceNow = time.Date(2026, time.October, 15, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, cal *stubCalendar) (Service, *gorm.DB, *countingMetrics) {
	t.Helper()
	conn := dbtest.Open(t)
	metrics := &countingMetrics{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.Wrap(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Calendar: cal,
		Pricing:  stubPricing{},
		Metrics:  metrics,
		Prefix:   "crb",
		Location: time.UTC,
		Clock:    func() time.Time { return serviceNow },
	})
	require.NoError(t, err)
	return svc, conn, metrics
}

func deliveryInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerName:       " Ana Gómez ",
		CustomerEmail:      "Ana@Example.com",
		CustomerPhone:      "+57 300 123 4567",
		CustomerNationalID: "1.020.304.050",
		DeliveryMethod:     enums.DeliveryMethodDelivery,
		ShippingAddress:    "Calle 10 # 5-20",
		ShippingCity:       "Bogotá",
		ShippingDepartment: "Bogotá D.C.",
		DeliveryDate:       types.NewDate(2026, time.October, 17),
		Items: []ItemInput{
			{ProductID: "torta-chocolate", Name: "Torta de chocolate", SizeLabel: "Mediana", UnitPrice: 45000, Quantity: 2},
			{ProductID: "galletas", Name: "Galletas", UnitPrice: 10000, Quantity: 1},
		},
		Subtotal:     100000,
		ShippingCost: 10000,
		Total:        110000,
	}
}

func outboxEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestCreatePersistsNumberedOrder(t *testing.T) {
	cal := &stubCalendar{}
	svc, conn, metrics := newTestService(t, cal)
	ctx := context.Background()

	first, err := svc.Create(ctx, deliveryInput())
	require.NoError(t, err)
	assert.Equal(t, "CRB-2026-0001", first.OrderNumber)
	assert.Equal(t, "ana@example.com", first.CustomerEmail)
	assert.Equal(t, "3001234567", first.CustomerPhone)
	assert.Equal(t, "1020304050", first.CustomerNationalID)
	assert.Equal(t, enums.PaymentMethodGateway, first.PaymentMethod)
	assert.Equal(t, enums.PaymentStatusPending, first.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, first.Status)
	require.NotNil(t, first.ShippingCity)
	assert.Equal(t, "Bogotá", *first.ShippingCity)

	second, err := svc.Create(ctx, deliveryInput())
	require.NoError(t, err)
	assert.Equal(t, "CRB-2026-0002", second.OrderNumber)

	stored, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, int64(90000), stored.Items[0].LineTotal())

	assert.Equal(t, int64(2), outboxEvents(t, conn, enums.EventOrderCreated))
	assert.Equal(t, 2, metrics.created)
	assert.Len(t, cal.dates, 2)
}

func TestCreateRecordsRedemptionOncePerEmail(t *testing.T) {
	svc, conn, _ := newTestService(t, &stubCalendar{})
	ctx := context.Background()

	input := deliveryInput()
	input.DiscountCode = "welcome10"
	input.DiscountAmount = 10000
	input.Total = 100000

	order, err := svc.Create(ctx, input)
	require.NoError(t, err)
	require.NotNil(t, order.DiscountCode)
	assert.Equal(t, "WELCOME10", *order.DiscountCode)

	var redemptions int64
	require.NoError(t, conn.Model(&models.DiscountRedemption{}).Count(&redemptions).Error)
	assert.Equal(t, int64(1), redemptions)

	_, err = svc.Create(ctx, input)
	require.ErrorIs(t, err, pricing.ErrCodeAlreadyUsed)

	var orders int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders, "failed redemption must roll back the order")
	assert.Equal(t, int64(1), outboxEvents(t, conn, enums.EventOrderCreated))
}

func TestCreateRejectsMismatchedFigures(t *testing.T) {
	svc, _, _ := newTestService(t, &stubCalendar{})

	cases := map[string]struct {
		mutate func(*CreateOrderInput)
		field  string
	}{
		"items disagree with subtotal": {func(in *CreateOrderInput) {
			in.Subtotal, in.Total = 90000, 100000
		}, "subtotal"},
		"client shipping differs": {func(in *CreateOrderInput) {
			in.ShippingCost, in.Total = 5000, 105000
		}, "shippingCost"},
		"unknown discount code": {func(in *CreateOrderInput) {
			in.DiscountCode = "NOPE"
		}, "discountCode"},
		"discount not applied client side": {func(in *CreateOrderInput) {
			in.DiscountCode = "WELCOME10"
		}, "discountAmount"},
		"cash on delivery": {func(in *CreateOrderInput) {
			in.PaymentMethod = enums.PaymentMethodCash
		}, "paymentMethod"},
		"landline phone": {func(in *CreateOrderInput) {
			in.CustomerPhone = "6012345678"
		}, "customerPhone"},
		"missing city": {func(in *CreateOrderInput) {
			in.ShippingCity = " "
		}, "shippingCity"},
		"arithmetic off": {func(in *CreateOrderInput) {
			in.Total = 1
		}, "total"},
		"zero quantity": {func(in *CreateOrderInput) {
			in.Items[1].Quantity = 0
		}, "items"},
		"unit price overflows total": {func(in *CreateOrderInput) {
			in.Items[0].UnitPrice = math.MaxInt64 / 2
			in.Items[0].Quantity = 4
		}, "items"},
		"subtotal beyond any cart": {func(in *CreateOrderInput) {
			in.Subtotal, in.Total = math.MaxInt64, math.MaxInt64
		}, "subtotal"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			input := deliveryInput()
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "err %v", err)
			assert.Equal(t, tc.field, pkgerrors.FieldOf(err))
		})
	}
}

func TestCreatePickupDropsAddress(t *testing.T) {
	svc, _, _ := newTestService(t, &stubCalendar{})

	input := deliveryInput()
	input.DeliveryMethod = enums.DeliveryMethodPickup
	input.PaymentMethod = enums.PaymentMethodCash
	input.ShippingCost = 0
	input.Total = 100000

	order, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Nil(t, order.ShippingAddress)
	assert.Nil(t, order.ShippingCity)
	assert.Equal(t, int64(0), order.ShippingCost)
}

func TestCreateStopsOnInvalidDeliveryDate(t *testing.T) {
	cal := &stubCalendar{err: pkgerrors.Field("deliveryDate", "not a delivery day")}
	svc, conn, _ := newTestService(t, cal)

	_, err := svc.Create(context.Background(), deliveryInput())
	assert.Equal(t, "deliveryDate", pkgerrors.FieldOf(err))

	var count int64
	require.NoError(t, conn.Model(&models.OrderSequence{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetAndList(t *testing.T) {
	svc, _, _ := newTestService(t, &stubCalendar{})
	ctx := context.Background()

	_, err := svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, deliveryInput())
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, pagination.Params{Limit: 10}, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 3)
	assert.Empty(t, page.NextCursor)

	_, err = svc.List(ctx, pagination.Params{Cursor: "%%%"}, ListFilters{})
	assert.Equal(t, "cursor", pkgerrors.FieldOf(err))

	bad := enums.PaymentStatus("SETTLED")
	_, err = svc.List(ctx, pagination.Params{}, ListFilters{PaymentStatus: &bad})
	assert.Equal(t, "paymentStatus", pkgerrors.FieldOf(err))
}

func TestUpdateStatusEmitsOnChange(t *testing.T) {
	svc, conn, _ := newTestService(t, &stubCalendar{})
	ctx := context.Background()
	actor := &outbox.ActorRef{Subject: "admin-1", Role: "admin"}

	order, err := svc.Create(ctx, deliveryInput())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPreparing, actor)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPreparing, updated.Status)

	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPreparing, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), outboxEvents(t, conn, enums.EventOrderStatusChanged))

	_, err = svc.UpdateStatus(ctx, order.ID, "BAKING", actor)
	assert.Equal(t, "status", pkgerrors.FieldOf(err))

	_, err = svc.UpdateStatus(ctx, uuid.New(), enums.OrderStatusDelivered, actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
