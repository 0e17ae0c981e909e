package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/crumbly-backend/pkg/logger"
)

type holidayCoverageChecker interface {
	MissingHolidayYears(ctx context.Context, years ...int) ([]int, error)
}

type HolidayCoverageJobParams struct {
	Logger   *logger.Logger
	Calendar holidayCoverageChecker
	Location *time.Location
}

// NewHolidayCoverageJob warns when the current or next year has no movable
// holidays loaded. Delivery dates in an uncovered year would skip them.
func NewHolidayCoverageJob(params HolidayCoverageJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Calendar == nil {
		return nil, fmt.Errorf("calendar service required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &holidayCoverageJob{
		logg:     params.Logger,
		calendar: params.Calendar,
		loc:      loc,
		now:      time.Now,
	}, nil
}

type holidayCoverageJob struct {
	logg     *logger.Logger
	calendar holidayCoverageChecker
	loc      *time.Location
	now      func() time.Time
}

func (j *holidayCoverageJob) Name() string { return "holiday-coverage" }

func (j *holidayCoverageJob) Run(ctx context.Context) error {
	year := j.now().In(j.loc).Year()
	missing, err := j.calendar.MissingHolidayYears(ctx, year, year+1)
	if err != nil {
		return fmt.Errorf("holiday coverage: %w", err)
	}
	for _, y := range missing {
		logCtx := j.logg.WithFields(ctx, map[string]any{"year": y, "event": "calendar.holidays_missing"})
		j.logg.Warn(logCtx, "no movable holidays loaded for year")
	}
	if len(missing) == 0 {
		j.logg.Info(j.logg.WithField(ctx, "years", []int{year, year + 1}), "movable holidays covered")
	}
	return nil
}
