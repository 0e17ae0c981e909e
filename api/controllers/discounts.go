package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/crumbly-backend/api/responses"
	"github.com/angelmondragon/crumbly-backend/api/validators"
	"github.com/angelmondragon/crumbly-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
)

type discountValidator interface {
	ValidateDiscountCode(ctx context.Context, code, email string, now time.Time) (int, error)
}

type validateDiscountRequest struct {
	Code  string `json:"code" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

type validateDiscountResponse struct {
	Code    string `json:"code"`
	Percent int    `json:"percent"`
}

// ValidateDiscount reports the percent a code grants to an email right now.
func ValidateDiscount(svc discountValidator, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var req validateDiscountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		percent, err := svc.ValidateDiscountCode(r.Context(), req.Code, req.Email, now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, validateDiscountResponse{
			Code:    pricing.NormalizeCode(req.Code),
			Percent: percent,
		})
	}
}
