package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/pkg/enums"
)

type FreeShippingRule struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	Name          string                     `gorm:"column:name;not null"`
	Type          enums.FreeShippingRuleType `gorm:"column:type;type:text;not null"`
	MinimumAmount *int64                     `gorm:"column:minimum_amount"`
	Cities        []string                   `gorm:"column:cities;type:jsonb;serializer:json"`
	Departments   []string                   `gorm:"column:departments;type:jsonb;serializer:json"`
	IsActive      bool                       `gorm:"column:is_active;not null"`
	Priority      int                        `gorm:"column:priority;not null"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *FreeShippingRule) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
