package calendar

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

// Repository persists blocked dates and movable holidays.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListBlocked(ctx context.Context, from, to types.Date) ([]models.BlockedDate, error)
	InsertBlocked(ctx context.Context, date types.Date, reason *string) (bool, error)
	DeleteBlocked(ctx context.Context, date types.Date) (bool, error)
	DeleteBlockedBefore(ctx context.Context, cutoff types.Date) (int64, error)
	ListMovable(ctx context.Context, years ...int) ([]models.MovableHoliday, error)
	ReplaceMovable(ctx context.Context, year int, holidays []models.MovableHoliday) error
	MovableYears(ctx context.Context) ([]int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListBlocked returns blocked dates in [from, to]; a zero bound is open.
func (r *repository) ListBlocked(ctx context.Context, from, to types.Date) ([]models.BlockedDate, error) {
	q := r.db.WithContext(ctx).Model(&models.BlockedDate{})
	if !from.IsZero() {
		q = q.Where("date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", to)
	}
	var rows []models.BlockedDate
	if err := q.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertBlocked reports false when the date was already blocked.
func (r *repository) InsertBlocked(ctx context.Context, date types.Date, reason *string) (bool, error) {
	row := models.BlockedDate{Date: date, Reason: reason}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "date"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DeleteBlocked(ctx context.Context, date types.Date) (bool, error) {
	res := r.db.WithContext(ctx).Where("date = ?", date).Delete(&models.BlockedDate{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteBlockedBefore(ctx context.Context, cutoff types.Date) (int64, error) {
	res := r.db.WithContext(ctx).Where("date < ?", cutoff).Delete(&models.BlockedDate{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListMovable(ctx context.Context, years ...int) ([]models.MovableHoliday, error) {
	q := r.db.WithContext(ctx).Model(&models.MovableHoliday{})
	if len(years) > 0 {
		q = q.Where("year IN ?", years)
	}
	var rows []models.MovableHoliday
	if err := q.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceMovable swaps the whole list for year. Callers run it in a transaction.
func (r *repository) ReplaceMovable(ctx context.Context, year int, holidays []models.MovableHoliday) error {
	if err := r.db.WithContext(ctx).Where("year = ?", year).Delete(&models.MovableHoliday{}).Error; err != nil {
		return err
	}
	if len(holidays) == 0 {
		return nil
	}
	for i := range holidays {
		holidays[i].Year = year
	}
	return r.db.WithContext(ctx).Create(&holidays).Error
}

func (r *repository) MovableYears(ctx context.Context) ([]int, error) {
	var years []int
	err := r.db.WithContext(ctx).
		Model(&models.MovableHoliday{}).
		Distinct("year").
		Order("year ASC").
		Pluck("year", &years).Error
	return years, err
}
