package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/crumbly-backend/api/middleware"
	internalorders "github.com/angelmondragon/crumbly-backend/internal/orders"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/pagination"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

type stubOrderService struct {
	createFn func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	listFn   func(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error)
	statusFn func(ctx context.Context, id uuid.UUID, to enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error)
}

func (s stubOrderService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	return s.createFn(ctx, input)
}

func (s stubOrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.getFn(ctx, id)
}

func (s stubOrderService) List(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	return s.listFn(ctx, params, filters)
}

func (s stubOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, to enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error) {
	return s.statusFn(ctx, id, to, actor)
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "CRB-2026-0001",
		CustomerName:   "Ana Gómez",
		CustomerEmail:  "ana@example.com",
		DeliveryMethod: enums.DeliveryMethodPickup,
		DeliveryDate:   types.NewDate(2026, time.October, 19),
		Subtotal:       120000,
		DiscountAmount: 12000,
		Total:          108000,
		PaymentMethod:  enums.PaymentMethodGateway,
		PaymentStatus:  enums.PaymentStatusPending,
		Status:         enums.OrderStatusPending,
	}
}

const createBody = `{
	"customerName": "Ana Gómez",
	"customerEmail": "ana@example.com",
	"customerPhone": "3001234567",
	"customerNationalId": "1020304050",
	"deliveryMethod": "pickup",
	"deliveryDate": "2026-10-19",
	"paymentMethod": "gateway",
	"items": [{"productId": "torta-chocolate", "name": "Torta de chocolate", "unitPrice": 60000, "quantity": 2}],
	"subtotal": 120000,
	"shippingCost": 0,
	"discountCode": "WELCOME10",
	"discountAmount": 12000,
	"total": 108000
}`

func TestCreateMapsRequestAndReturns201(t *testing.T) {
	var got internalorders.CreateOrderInput
	svc := stubOrderService{createFn: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
		got = input
		return sampleOrder(), nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if got.DeliveryMethod != enums.DeliveryMethodPickup || got.PaymentMethod != enums.PaymentMethodGateway {
		t.Fatalf("enums not normalised: %+v", got)
	}
	if got.DeliveryDate != types.NewDate(2026, time.October, 19) {
		t.Fatalf("unexpected delivery date %s", got.DeliveryDate)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", got.Items)
	}

	var envelope struct {
		Data internalorders.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderNumber != "CRB-2026-0001" {
		t.Fatalf("unexpected order number %s", envelope.Data.OrderNumber)
	}
}

func TestCreateSurfacesFieldError(t *testing.T) {
	svc := stubOrderService{createFn: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
		return nil, pkgerrors.Field("total", "does not match the computed total")
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total"`) {
		t.Fatalf("expected field name in body: %s", rec.Body.String())
	}
}

func TestCreateRejectsUnknownFieldsAndEmptyItems(t *testing.T) {
	svc := stubOrderService{createFn: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
		t.Fatalf("service must not be called")
		return nil, nil
	}}
	bodies := []string{
		`{"customerName":"A","unexpected":true}`,
		`{"customerName":"A","customerEmail":"a@example.com","customerPhone":"3001234567","customerNationalId":"123456","deliveryMethod":"PICKUP","items":[]}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		rec := httptest.NewRecorder()
		Create(svc, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGetNotFoundAndBadID(t *testing.T) {
	svc := stubOrderService{getFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return nil, internalorders.ErrOrderNotFound
	}}

	rec := httptest.NewRecorder()
	Get(svc, nil).ServeHTTP(rec, withRouteParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", uuid.NewString()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	Get(svc, nil).ServeHTTP(rec, withRouteParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "not-a-uuid"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminListPassesFilters(t *testing.T) {
	svc := stubOrderService{listFn: func(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
		if params.Limit != 10 || params.Cursor != "abc" {
			t.Fatalf("unexpected params %+v", params)
		}
		if filters.Status == nil || *filters.Status != enums.OrderStatusConfirmed {
			t.Fatalf("unexpected status filter %v", filters.Status)
		}
		if filters.PaymentStatus == nil || *filters.PaymentStatus != enums.PaymentStatusPaid {
			t.Fatalf("unexpected payment filter %v", filters.PaymentStatus)
		}
		return &internalorders.OrderList{Orders: []internalorders.OrderDTO{}}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?limit=10&cursor=abc&status=confirmed&paymentStatus=paid", nil)
	rec := httptest.NewRecorder()
	AdminList(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	AdminList(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?limit=500", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit, got %d", rec.Code)
	}
}

func TestAdminUpdateStatusCarriesActor(t *testing.T) {
	order := sampleOrder()
	svc := stubOrderService{statusFn: func(ctx context.Context, id uuid.UUID, to enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error) {
		if id != order.ID || to != enums.OrderStatusPreparing {
			t.Fatalf("unexpected update %s -> %s", id, to)
		}
		if actor == nil || actor.Subject != "admin-1" || actor.Role != "admin" {
			t.Fatalf("unexpected actor %+v", actor)
		}
		order.Status = to
		return order, nil
	}}

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"preparing"}`))
	req = req.WithContext(middleware.WithIdentity(req.Context(), "admin-1", "admin"))
	req = withRouteParam(req, "orderId", order.ID.String())
	rec := httptest.NewRecorder()
	AdminUpdateStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"PREPARING"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
