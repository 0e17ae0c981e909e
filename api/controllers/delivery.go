package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/crumbly-backend/api/responses"
	"github.com/angelmondragon/crumbly-backend/api/validators"
	"github.com/angelmondragon/crumbly-backend/internal/calendar"
	"github.com/angelmondragon/crumbly-backend/internal/checkout"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
)

type windowProvider interface {
	Window(ctx context.Context, now time.Time) (*calendar.Window, error)
}

type quoteRequest struct {
	DeliveryMethod string `json:"deliveryMethod"`
	Department     string `json:"department"`
	City           string `json:"city"`
	Subtotal       int64  `json:"subtotal" validate:"gt=0"`
	DiscountCode   string `json:"discountCode"`
	Email          string `json:"email"`
}

// DeliveryQuote prices shipping and reports the delivery window for a cart.
func DeliveryQuote(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method := enums.DeliveryMethodDelivery
		if raw := strings.TrimSpace(req.DeliveryMethod); raw != "" {
			method = enums.DeliveryMethod(strings.ToUpper(raw))
		}

		quote, err := svc.Quote(r.Context(), checkout.QuoteInput{
			DeliveryMethod: method,
			Department:     req.Department,
			City:           req.City,
			Subtotal:       req.Subtotal,
			DiscountCode:   req.DiscountCode,
			Email:          req.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// DeliveryWindow returns the bookable delivery range without pricing.
func DeliveryWindow(svc windowProvider, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}
		window, err := svc.Window(r.Context(), now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, window)
	}
}
