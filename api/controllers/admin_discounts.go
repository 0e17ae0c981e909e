package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/crumbly-backend/api/middleware"
	"github.com/angelmondragon/crumbly-backend/api/responses"
	"github.com/angelmondragon/crumbly-backend/api/validators"
	"github.com/angelmondragon/crumbly-backend/internal/discounts"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
)

type discountAdmin interface {
	Create(ctx context.Context, input discounts.CreateInput, actor *outbox.ActorRef) (*models.DiscountCode, error)
	List(ctx context.Context) ([]models.DiscountCode, error)
	Activate(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.DiscountCode, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type createDiscountRequest struct {
	Code        string     `json:"code" validate:"required"`
	Percent     int        `json:"percent" validate:"min=1,max=100"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Activate    bool       `json:"activate"`
}

func AdminCreateDiscountCode(svc discountAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		var req createDiscountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Create(r.Context(), discounts.CreateInput{
			Code:        req.Code,
			Percent:     req.Percent,
			Description: req.Description,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Activate:    req.Activate,
		}, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDiscountCodeDTO(row))
	}
}

func AdminListDiscountCodes(svc discountAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]discountCodeDTO, 0, len(rows))
		for i := range rows {
			out = append(out, newDiscountCodeDTO(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminActivateDiscountCode makes the code the single active one.
func AdminActivateDiscountCode(svc discountAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Activate(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDiscountCodeDTO(row))
	}
}

func AdminDeactivateDiscountCode(svc discountAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Deactivate(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDiscountCodeDTO(row))
	}
}

func AdminDeleteDiscountCode(svc discountAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
