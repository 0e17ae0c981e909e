package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/crumbly-backend/api/responses"
	"github.com/angelmondragon/crumbly-backend/api/validators"
	"github.com/angelmondragon/crumbly-backend/internal/shippingrules"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
)

type shippingRuleAdmin interface {
	Create(ctx context.Context, input shippingrules.RuleInput) (*models.FreeShippingRule, error)
	Update(ctx context.Context, id uuid.UUID, input shippingrules.RuleInput) (*models.FreeShippingRule, error)
	List(ctx context.Context, onlyActive bool) ([]models.FreeShippingRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type shippingRuleRequest struct {
	Name          string   `json:"name" validate:"required"`
	Type          string   `json:"type" validate:"required"`
	MinimumAmount *int64   `json:"minimumAmount"`
	Cities        []string `json:"cities"`
	Departments   []string `json:"departments"`
	IsActive      *bool    `json:"isActive"`
	Priority      int      `json:"priority"`
}

func (req shippingRuleRequest) toInput() shippingrules.RuleInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return shippingrules.RuleInput{
		Name:          req.Name,
		Type:          enums.FreeShippingRuleType(strings.ToUpper(strings.TrimSpace(req.Type))),
		MinimumAmount: req.MinimumAmount,
		Cities:        req.Cities,
		Departments:   req.Departments,
		IsActive:      active,
		Priority:      req.Priority,
	}
}

func AdminCreateShippingRule(svc shippingRuleAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping rules service unavailable"))
			return
		}

		var req shippingRuleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newFreeShippingRuleDTO(rule))
	}
}

// AdminListShippingRules lists rules by priority; ?active=true hides inactive ones.
func AdminListShippingRules(svc shippingRuleAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping rules service unavailable"))
			return
		}
		onlyActive := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("active")), "true")

		rows, err := svc.List(r.Context(), onlyActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]freeShippingRuleDTO, 0, len(rows))
		for i := range rows {
			out = append(out, newFreeShippingRuleDTO(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func AdminUpdateShippingRule(svc shippingRuleAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping rules service unavailable"))
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shippingRuleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.Update(r.Context(), id, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newFreeShippingRuleDTO(rule))
	}
}

func AdminDeleteShippingRule(svc shippingRuleAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping rules service unavailable"))
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
