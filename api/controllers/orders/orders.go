package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/crumbly-backend/api/middleware"
	"github.com/angelmondragon/crumbly-backend/api/responses"
	"github.com/angelmondragon/crumbly-backend/api/validators"
	internalorders "github.com/angelmondragon/crumbly-backend/internal/orders"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/pagination"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

type createOrderRequest struct {
	CustomerName       string             `json:"customerName" validate:"required"`
	CustomerEmail      string             `json:"customerEmail" validate:"required"`
	CustomerPhone      string             `json:"customerPhone" validate:"required"`
	CustomerNationalID string             `json:"customerNationalId" validate:"required"`
	DeliveryMethod     string             `json:"deliveryMethod" validate:"required"`
	ShippingAddress    string             `json:"shippingAddress"`
	ShippingCity       string             `json:"shippingCity"`
	ShippingDepartment string             `json:"shippingDepartment"`
	ShippingNotes      string             `json:"shippingNotes"`
	DeliveryDate       types.Date         `json:"deliveryDate"`
	PaymentMethod      string             `json:"paymentMethod"`
	Items              []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Subtotal           int64              `json:"subtotal"`
	ShippingCost       int64              `json:"shippingCost"`
	DiscountCode       string             `json:"discountCode"`
	DiscountAmount     int64              `json:"discountAmount"`
	Total              int64              `json:"total"`
}

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	SizeLabel string `json:"sizeLabel"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"imageUrl"`
}

func (req createOrderRequest) toInput() internalorders.CreateOrderInput {
	items := make([]internalorders.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, internalorders.ItemInput{
			ProductID: item.ProductID,
			Name:      item.Name,
			SizeLabel: item.SizeLabel,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}
	return internalorders.CreateOrderInput{
		CustomerName:       req.CustomerName,
		CustomerEmail:      req.CustomerEmail,
		CustomerPhone:      req.CustomerPhone,
		CustomerNationalID: req.CustomerNationalID,
		DeliveryMethod:     enums.DeliveryMethod(strings.ToUpper(strings.TrimSpace(req.DeliveryMethod))),
		ShippingAddress:    req.ShippingAddress,
		ShippingCity:       req.ShippingCity,
		ShippingDepartment: req.ShippingDepartment,
		ShippingNotes:      req.ShippingNotes,
		DeliveryDate:       req.DeliveryDate,
		PaymentMethod:      enums.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
		Items:              items,
		Subtotal:           req.Subtotal,
		ShippingCost:       req.ShippingCost,
		DiscountCode:       req.DiscountCode,
		DiscountAmount:     req.DiscountAmount,
		Total:              req.Total,
	}
}

// Create places a storefront order after the service re-derives every figure.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.NewOrderDTO(order))
	}
}

// Get returns one order. The storefront uses it for the confirmation page.
func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderDTO(order))
	}
}

// AdminList pages through orders newest first.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		}

		var filters internalorders.ListFilters
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status := enums.OrderStatus(strings.ToUpper(raw))
			filters.Status = &status
		}
		if raw := strings.TrimSpace(query.Get("paymentStatus")); raw != "" {
			payment := enums.PaymentStatus(strings.ToUpper(raw))
			filters.PaymentStatus = &payment
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminUpdateStatus moves an order to any fulfillment status.
func AdminUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		order, err := svc.UpdateStatus(r.Context(), orderID, status, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderDTO(order))
	}
}
