package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

// BlockedDate is an administrator blackout day.
type BlockedDate struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Date      types.Date `gorm:"column:date;not null;uniqueIndex:uq_blocked_dates_date"`
	Reason    *string    `gorm:"column:reason"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (b *BlockedDate) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

// MovableHoliday is one national holiday whose date changes every year.
type MovableHoliday struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Year      int        `gorm:"column:year;not null;uniqueIndex:uq_movable_holidays_year_date,priority:1"`
	Date      types.Date `gorm:"column:date;not null;uniqueIndex:uq_movable_holidays_year_date,priority:2"`
	Name      string     `gorm:"column:name;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (h *MovableHoliday) BeforeCreate(*gorm.DB) error {
	assignID(&h.ID)
	return nil
}
