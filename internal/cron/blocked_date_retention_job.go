package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

const blockedDateRetentionDays = 365

type blockedDatePurger interface {
	PurgeBlockedBefore(ctx context.Context, cutoff types.Date) (int64, error)
}

type BlockedDateRetentionJobParams struct {
	Logger    *logger.Logger
	Calendar  blockedDatePurger
	Location  *time.Location
	Retention int
}

func NewBlockedDateRetentionJob(params BlockedDateRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Calendar == nil {
		return nil, fmt.Errorf("calendar service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = blockedDateRetentionDays
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &blockedDateRetentionJob{
		logg:      params.Logger,
		calendar:  params.Calendar,
		loc:       loc,
		retention: retention,
		now:       time.Now,
	}, nil
}

type blockedDateRetentionJob struct {
	logg      *logger.Logger
	calendar  blockedDatePurger
	loc       *time.Location
	retention int
	now       func() time.Time
}

func (j *blockedDateRetentionJob) Name() string { return "blocked-date-retention" }

// Run deletes blocked dates that fell out of the retention window, measured in
// store-local calendar days.
func (j *blockedDateRetentionJob) Run(ctx context.Context) error {
	cutoff := types.DateOf(j.now().In(j.loc)).AddDays(-j.retention)
	deleted, err := j.calendar.PurgeBlockedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("blocked date retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff.String(),
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "blocked date retention cleanup complete")
	return nil
}
