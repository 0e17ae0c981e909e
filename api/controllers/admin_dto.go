package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

type blockedDateDTO struct {
	Date      types.Date `json:"date"`
	Reason    *string    `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type holidayDTO struct {
	Date types.Date `json:"date"`
	Name string     `json:"name"`
}

type discountCodeDTO struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Percent     int        `json:"percent"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type freeShippingRuleDTO struct {
	ID            uuid.UUID                  `json:"id"`
	Name          string                     `json:"name"`
	Type          enums.FreeShippingRuleType `json:"type"`
	MinimumAmount *int64                     `json:"minimumAmount,omitempty"`
	Cities        []string                   `json:"cities"`
	Departments   []string                   `json:"departments"`
	IsActive      bool                       `json:"isActive"`
	Priority      int                        `json:"priority"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

func newBlockedDateDTOs(rows []models.BlockedDate) []blockedDateDTO {
	out := make([]blockedDateDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, blockedDateDTO{Date: row.Date, Reason: row.Reason, CreatedAt: row.CreatedAt})
	}
	return out
}

func newHolidayDTOs(rows []models.MovableHoliday) []holidayDTO {
	out := make([]holidayDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, holidayDTO{Date: row.Date, Name: row.Name})
	}
	return out
}

func newDiscountCodeDTO(row *models.DiscountCode) discountCodeDTO {
	return discountCodeDTO{
		ID:          row.ID,
		Code:        row.Code,
		Percent:     row.Percent,
		Description: row.Description,
		StartDate:   row.StartDate,
		EndDate:     row.EndDate,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
	}
}

func newFreeShippingRuleDTO(row *models.FreeShippingRule) freeShippingRuleDTO {
	cities, departments := row.Cities, row.Departments
	if cities == nil {
		cities = []string{}
	}
	if departments == nil {
		departments = []string{}
	}
	return freeShippingRuleDTO{
		ID:            row.ID,
		Name:          row.Name,
		Type:          row.Type,
		MinimumAmount: row.MinimumAmount,
		Cities:        cities,
		Departments:   departments,
		IsActive:      row.IsActive,
		Priority:      row.Priority,
		UpdatedAt:     row.UpdatedAt,
	}
}
