package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DiscountCode is the storefront's popup promotion code.
type DiscountCode struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Code        string     `gorm:"column:code;not null;uniqueIndex:uq_discount_codes_code"`
	Percent     int        `gorm:"column:percent;not null"`
	Description *string    `gorm:"column:description"`
	StartDate   *time.Time `gorm:"column:start_date"`
	EndDate     *time.Time `gorm:"column:end_date"`
	IsActive    bool       `gorm:"column:is_active;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *DiscountCode) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// ActiveAt reports whether now falls inside the code's window. A nil bound is open.
func (d DiscountCode) ActiveAt(now time.Time) bool {
	switch {
	case d.StartDate == nil && d.EndDate == nil:
		return true
	case d.StartDate != nil && d.EndDate == nil:
		return !now.Before(*d.StartDate)
	case d.StartDate == nil && d.EndDate != nil:
		return !now.After(*d.EndDate)
	default:
		return !now.Before(*d.StartDate) && !now.After(*d.EndDate)
	}
}

// DiscountRedemption records that an email used a code. (email, code) is unique.
type DiscountRedemption struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:uq_discount_redemptions_email_code,priority:1"`
	Code      string    `gorm:"column:code;not null;uniqueIndex:uq_discount_redemptions_email_code,priority:2"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *DiscountRedemption) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
