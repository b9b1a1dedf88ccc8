package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

const defaultPresenceTimeout = 10 * time.Minute

type presenceRepo interface {
	ListStalePresence(ctx context.Context, olderThan time.Time) ([]models.Driver, error)
	SetPresence(ctx context.Context, id uuid.UUID, status enums.PresenceStatus, at time.Time) error
}

// PresenceTimeoutJobParams configure the stale-presence sweep.
type PresenceTimeoutJobParams struct {
	Logger  *logger.Logger
	Drivers presenceRepo
	Timeout time.Duration
}

// NewPresenceTimeoutJob flips drivers offline when their last seen timestamp
// is older than the configured timeout.
func NewPresenceTimeoutJob(params PresenceTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Drivers == nil {
		return nil, fmt.Errorf("drivers repository required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultPresenceTimeout
	}
	return &presenceTimeoutJob{
		logg:    params.Logger,
		drivers: params.Drivers,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

type presenceTimeoutJob struct {
	logg    *logger.Logger
	drivers presenceRepo
	timeout time.Duration
	now     func() time.Time
}

func (j *presenceTimeoutJob) Name() string { return "presence-timeout" }

func (j *presenceTimeoutJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.timeout)

	stale, err := j.drivers.ListStalePresence(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale presence: %w", err)
	}

	var errs error
	flipped := 0
	for _, driver := range stale {
		if err := j.drivers.SetPresence(ctx, driver.ID, enums.PresenceStatusOffline, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("driver %s: %w", driver.ID, err))
			continue
		}
		flipped++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"stale_count":     len(stale),
		"flipped_offline": flipped,
	})
	j.logg.Info(logCtx, "presence timeout sweep complete")
	return errs
}
