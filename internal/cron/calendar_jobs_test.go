package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

var bogota = time.FixedZone("COT", -5*3600)

type fakeCalendar struct {
	covered   map[int]bool
	asked     []int
	cutoff    types.Date
	purged    int64
	err       error
	purgeRuns int
}

func (f *fakeCalendar) MissingHolidayYears(_ context.Context, years ...int) ([]int, error) {
	f.asked = years
	if f.err != nil {
		return nil, f.err
	}
	var missing []int
	for _, y := range years {
		if !f.covered[y] {
			missing = append(missing, y)
		}
	}
	return missing, nil
}

func (f *fakeCalendar) PurgeBlockedBefore(_ context.Context, cutoff types.Date) (int64, error) {
	f.purgeRuns++
	f.cutoff = cutoff
	return f.purged, f.err
}

func TestHolidayCoverageWarnsForMissingYears(t *testing.T) {
	var out bytes.Buffer
	cal := &fakeCalendar{covered: map[int]bool{2026: true}}
	jobIface, err := NewHolidayCoverageJob(HolidayCoverageJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &out}),
		Calendar: cal,
		Location: bogota,
	})
	require.NoError(t, err)
	job := jobIface.(*holidayCoverageJob)
	// 03:00 UTC on Jan 1 is still Dec 31 in Bogotá.
	job.now = func() time.Time { return time.Date(2027, time.January, 1, 3, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []int{2026, 2027}, cal.asked)
	assert.Contains(t, out.String(), "no movable holidays loaded for year")
	assert.Contains(t, out.String(), `"year":2027`)
	assert.NotContains(t, out.String(), `"year":2026`)
}

func TestHolidayCoverageSurfacesStoreErrors(t *testing.T) {
	cal := &fakeCalendar{err: errors.New("db down")}
	job, err := NewHolidayCoverageJob(HolidayCoverageJobParams{Logger: logger.New(logger.Options{ServiceName: "test"}), Calendar: cal})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))

	_, err = NewHolidayCoverageJob(HolidayCoverageJobParams{Logger: logger.New(logger.Options{ServiceName: "test"})})
	assert.Error(t, err)
}

func TestBlockedDateRetentionUsesLocalCalendarDay(t *testing.T) {
	cal := &fakeCalendar{purged: 4}
	jobIface, err := NewBlockedDateRetentionJob(BlockedDateRetentionJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Calendar:  cal,
		Location:  bogota,
		Retention: 30,
	})
	require.NoError(t, err)
	job := jobIface.(*blockedDateRetentionJob)
	job.now = func() time.Time { return time.Date(2026, time.October, 15, 2, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, cal.purgeRuns)
	assert.Equal(t, types.NewDate(2026, time.September, 14), cal.cutoff)
}

func TestBlockedDateRetentionDefaultsAndErrors(t *testing.T) {
	cal := &fakeCalendar{err: errors.New("boom")}
	jobIface, err := NewBlockedDateRetentionJob(BlockedDateRetentionJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Calendar: cal,
	})
	require.NoError(t, err)
	job := jobIface.(*blockedDateRetentionJob)
	assert.Equal(t, blockedDateRetentionDays, job.retention)
	assert.Error(t, job.Run(context.Background()))
}
