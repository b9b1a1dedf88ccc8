package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/swiftdrop/driver-backend/pkg/logger"
)

const defaultLocationRetentionDays = 30

type locationRetentionRepo interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// LocationRetentionJobParams configure the history prune.
type LocationRetentionJobParams struct {
	Logger    *logger.Logger
	Locations locationRetentionRepo
	Retention int
}

// NewLocationRetentionJob prunes driver location history past the retention window.
func NewLocationRetentionJob(params LocationRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locations == nil {
		return nil, fmt.Errorf("locations repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultLocationRetentionDays
	}
	return &locationRetentionJob{
		logg:      params.Logger,
		locations: params.Locations,
		retention: retention,
		now:       time.Now,
	}, nil
}

type locationRetentionJob struct {
	logg      *logger.Logger
	locations locationRetentionRepo
	retention int
	now       func() time.Time
}

func (j *locationRetentionJob) Name() string { return "location-retention" }

func (j *locationRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.locations.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("location retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "location retention complete")
	return nil
}
