package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

// blockedLookahead is how far past the delivery window blocked dates are
// loaded, so the minimum-date search never runs off the loaded range.
const blockedLookahead = 60

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Window is the delivery-date range offered to a customer at a given instant.
type Window struct {
	MinDate            types.Date    `json:"minDeliveryDate"`
	MaxDate            types.Date    `json:"maxDeliveryDate"`
	Timing             TimingMessage `json:"timing"`
	HolidayDataMissing []int         `json:"holidayDataMissing,omitempty"`
}

type BlockDatesInput struct {
	Dates  []types.Date
	Reason *string
}

type BlockDatesResult struct {
	Created      int          `json:"created"`
	Skipped      int          `json:"skipped"`
	CreatedDates []types.Date `json:"createdDates"`
	SkippedDates []types.Date `json:"skippedDates"`
}

type HolidayInput struct {
	Date types.Date
	Name string
}

type ServiceParams struct {
	Repo            Repository
	Tx              txRunner
	Logger          *logger.Logger
	Location        *time.Location
	CutoffHour      int
	MaxDeliveryDays int
}

// Service loads calendar data from the store and answers questions through an Engine.
type Service struct {
	repo       Repository
	tx         txRunner
	logg       *logger.Logger
	loc        *time.Location
	cutoffHour int
	maxDays    int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("calendar repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	cutoff := params.CutoffHour
	if cutoff <= 0 {
		cutoff = DefaultCutoffHour
	}
	maxDays := params.MaxDeliveryDays
	if maxDays <= 0 {
		maxDays = DefaultMaxDeliveryDays
	}
	return &Service{
		repo:       params.Repo,
		tx:         params.Tx,
		logg:       params.Logger,
		loc:        loc,
		cutoffHour: cutoff,
		maxDays:    maxDays,
	}, nil
}

// Engine builds an engine with the data relevant to orders placed at now.
func (s *Service) Engine(ctx context.Context, now time.Time) (*Engine, error) {
	today := types.DateOf(now.In(s.loc))
	horizon := today.AddDays(s.maxDays + blockedLookahead)

	blocked, err := s.repo.ListBlocked(ctx, today, horizon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blocked dates")
	}

	years := yearsBetween(today, horizon)
	movable, err := s.repo.ListMovable(ctx, years...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load movable holidays")
	}

	snapshot := Snapshot{
		Movable: make(map[int][]types.Date, len(years)),
		Blocked: make([]types.Date, 0, len(blocked)),
	}
	for _, row := range blocked {
		snapshot.Blocked = append(snapshot.Blocked, row.Date)
	}
	for _, row := range movable {
		snapshot.Movable[row.Year] = append(snapshot.Movable[row.Year], row.Date)
	}

	engine := NewEngine(snapshot, s.loc, WithCutoffHour(s.cutoffHour), WithMaxDeliveryDays(s.maxDays))
	for _, year := range years {
		if !engine.CoversYear(year) && s.logg != nil {
			warnCtx := s.logg.WithField(ctx, "year", year)
			s.logg.Warn(warnCtx, "movable holiday data missing, using fixed holidays only")
		}
	}
	return engine, nil
}

func (s *Service) Window(ctx context.Context, now time.Time) (*Window, error) {
	engine, err := s.Engine(ctx, now)
	if err != nil {
		return nil, err
	}
	return windowFrom(engine, now), nil
}

func windowFrom(engine *Engine, now time.Time) *Window {
	w := &Window{
		MinDate: engine.MinimumDeliveryDate(now),
		MaxDate: engine.MaximumDeliveryDate(now),
		Timing:  engine.DeliveryTimingMessage(now),
	}
	today := types.DateOf(now.In(engine.Location()))
	for _, year := range yearsBetween(today, w.MaxDate) {
		if !engine.CoversYear(year) {
			w.HolidayDataMissing = append(w.HolidayDataMissing, year)
		}
	}
	return w
}

// ValidateDeliveryDate fails with a deliveryDate field error when date is not
// a valid delivery day inside the window for an order placed at now.
func (s *Service) ValidateDeliveryDate(ctx context.Context, date types.Date, now time.Time) error {
	if date.IsZero() {
		return pkgerrors.Field("deliveryDate", "delivery date is required")
	}
	engine, err := s.Engine(ctx, now)
	if err != nil {
		return err
	}
	return CheckDeliveryDate(engine, date, now)
}

// CheckDeliveryDate is ValidateDeliveryDate against an already built engine.
func CheckDeliveryDate(engine *Engine, date types.Date, now time.Time) error {
	if engine.InWindow(date, now) {
		return nil
	}
	if !engine.IsValidDeliveryDate(date) {
		return pkgerrors.Field("deliveryDate", fmt.Sprintf("%s is not a delivery day", date))
	}
	if minDate := engine.MinimumDeliveryDate(now); date.Before(minDate) {
		return pkgerrors.Field("deliveryDate", fmt.Sprintf("earliest delivery date is %s", minDate))
	}
	if maxDate := engine.MaximumDeliveryDate(now); date.After(maxDate) {
		return pkgerrors.Field("deliveryDate", fmt.Sprintf("latest delivery date is %s", maxDate))
	}
	return pkgerrors.Field("deliveryDate", fmt.Sprintf("%s is outside the delivery window", date))
}

// BlockDates adds each date once; dates already blocked are skipped.
func (s *Service) BlockDates(ctx context.Context, input BlockDatesInput) (*BlockDatesResult, error) {
	if len(input.Dates) == 0 {
		return nil, pkgerrors.Field("dates", "at least one date is required")
	}
	reason := trimmedOrNil(input.Reason)

	result := &BlockDatesResult{CreatedDates: []types.Date{}, SkippedDates: []types.Date{}}
	seen := make(map[types.Date]struct{}, len(input.Dates))
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, date := range input.Dates {
			if date.IsZero() {
				return pkgerrors.Field("dates", "dates must be YYYY-MM-DD")
			}
			if _, dup := seen[date]; dup {
				result.SkippedDates = append(result.SkippedDates, date)
				continue
			}
			seen[date] = struct{}{}

			created, err := repo.InsertBlocked(ctx, date, reason)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert blocked date")
			}
			if created {
				result.CreatedDates = append(result.CreatedDates, date)
			} else {
				result.SkippedDates = append(result.SkippedDates, date)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Created = len(result.CreatedDates)
	result.Skipped = len(result.SkippedDates)
	return result, nil
}

func (s *Service) ListBlockedDates(ctx context.Context, from, to types.Date) ([]models.BlockedDate, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, pkgerrors.Field("to", "to must not be before from")
	}
	rows, err := s.repo.ListBlocked(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list blocked dates")
	}
	return rows, nil
}

func (s *Service) UnblockDate(ctx context.Context, date types.Date) error {
	deleted, err := s.repo.DeleteBlocked(ctx, date)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete blocked date")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "blocked date not found")
	}
	return nil
}

// PurgeBlockedBefore removes blocked dates older than cutoff.
func (s *Service) PurgeBlockedBefore(ctx context.Context, cutoff types.Date) (int64, error) {
	return s.repo.DeleteBlockedBefore(ctx, cutoff)
}

func (s *Service) Holidays(ctx context.Context, year int) ([]models.MovableHoliday, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMovable(ctx, year)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list movable holidays")
	}
	return rows, nil
}

// ReplaceHolidays swaps the movable-holiday list of year in one transaction.
func (s *Service) ReplaceHolidays(ctx context.Context, year int, inputs []HolidayInput) ([]models.MovableHoliday, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}

	rows := make([]models.MovableHoliday, 0, len(inputs))
	seen := make(map[types.Date]struct{}, len(inputs))
	for _, in := range inputs {
		if in.Date.Year != year {
			return nil, pkgerrors.Field("holidays", fmt.Sprintf("%s is outside %d", in.Date, year))
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, pkgerrors.Field("holidays", "holiday name is required")
		}
		if _, dup := seen[in.Date]; dup {
			return nil, pkgerrors.Field("holidays", fmt.Sprintf("%s listed twice", in.Date))
		}
		seen[in.Date] = struct{}{}
		rows = append(rows, models.MovableHoliday{Year: year, Date: in.Date, Name: name})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).ReplaceMovable(ctx, year, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace movable holidays")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MissingHolidayYears returns the years in the list with no movable-holiday data.
func (s *Service) MissingHolidayYears(ctx context.Context, years ...int) ([]int, error) {
	covered, err := s.repo.MovableYears(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[int]struct{}, len(covered))
	for _, y := range covered {
		have[y] = struct{}{}
	}
	var missing []int
	for _, y := range years {
		if _, ok := have[y]; !ok {
			missing = append(missing, y)
		}
	}
	return missing, nil
}

func yearsBetween(from, to types.Date) []int {
	years := []int{from.Year}
	for y := from.Year + 1; y <= to.Year; y++ {
		years = append(years, y)
	}
	return years
}

func validateYear(year int) error {
	if year < 2000 || year > 2100 {
		return pkgerrors.Field("year", "year must be between 2000 and 2100")
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
