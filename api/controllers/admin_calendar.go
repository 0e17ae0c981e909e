package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/crumbly-backend/api/responses"
	"github.com/angelmondragon/crumbly-backend/api/validators"
	"github.com/angelmondragon/crumbly-backend/internal/calendar"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

type calendarAdmin interface {
	BlockDates(ctx context.Context, input calendar.BlockDatesInput) (*calendar.BlockDatesResult, error)
	ListBlockedDates(ctx context.Context, from, to types.Date) ([]models.BlockedDate, error)
	UnblockDate(ctx context.Context, date types.Date) error
	Holidays(ctx context.Context, year int) ([]models.MovableHoliday, error)
	ReplaceHolidays(ctx context.Context, year int, inputs []calendar.HolidayInput) ([]models.MovableHoliday, error)
}

type blockDatesRequest struct {
	Dates  []types.Date `json:"dates" validate:"required,min=1"`
	Reason *string      `json:"reason"`
}

// AdminBlockDates blacks out a list of dates, skipping ones already blocked.
func AdminBlockDates(svc calendarAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		var req blockDatesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BlockDates(r.Context(), calendar.BlockDatesInput{Dates: req.Dates, Reason: req.Reason})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdminListBlockedDates lists blackout dates, optionally bounded by from/to.
func AdminListBlockedDates(svc calendarAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		var from, to types.Date
		if parsed, err := validators.ParseQueryDate(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if parsed != nil {
			from = *parsed
		}
		if parsed, err := validators.ParseQueryDate(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if parsed != nil {
			to = *parsed
		}

		rows, err := svc.ListBlockedDates(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBlockedDateDTOs(rows))
	}
}

func AdminUnblockDate(svc calendarAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		date, err := validators.ParsePathDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UnblockDate(r.Context(), date); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminHolidays(svc calendarAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		year, err := validators.ParsePathYear(r, "year")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.Holidays(r.Context(), year)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newHolidayDTOs(rows))
	}
}

type replaceHolidaysRequest struct {
	Holidays []holidayRequest `json:"holidays" validate:"dive"`
}

type holidayRequest struct {
	Date types.Date `json:"date"`
	Name string     `json:"name" validate:"required"`
}

// AdminReplaceHolidays swaps the whole movable-holiday list for a year.
func AdminReplaceHolidays(svc calendarAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		year, err := validators.ParsePathYear(r, "year")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req replaceHolidaysRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inputs := make([]calendar.HolidayInput, 0, len(req.Holidays))
		for _, h := range req.Holidays {
			inputs = append(inputs, calendar.HolidayInput{Date: h.Date, Name: h.Name})
		}
		rows, err := svc.ReplaceHolidays(r.Context(), year, inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newHolidayDTOs(rows))
	}
}
