package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

type fakePresenceRepo struct {
	stale      []models.Driver
	listErr    error
	lastCutoff time.Time

	setCalls []uuid.UUID
	setErrBy map[uuid.UUID]error
}

func (f *fakePresenceRepo) ListStalePresence(ctx context.Context, olderThan time.Time) ([]models.Driver, error) {
	f.lastCutoff = olderThan
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.stale, nil
}

func (f *fakePresenceRepo) SetPresence(ctx context.Context, id uuid.UUID, status enums.PresenceStatus, at time.Time) error {
	if status != enums.PresenceStatusOffline {
		return errors.New("unexpected status " + string(status))
	}
	if err := f.setErrBy[id]; err != nil {
		return err
	}
	f.setCalls = append(f.setCalls, id)
	return nil
}

func newPresenceTimeoutJob(t *testing.T, repo *fakePresenceRepo) *presenceTimeoutJob {
	t.Helper()
	jobIface, err := NewPresenceTimeoutJob(PresenceTimeoutJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Drivers: repo,
		Timeout: 10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewPresenceTimeoutJob: %v", err)
	}
	job, ok := jobIface.(*presenceTimeoutJob)
	if !ok {
		t.Fatalf("expected presenceTimeoutJob, got %T", jobIface)
	}
	return job
}

func TestPresenceTimeoutJobFlipsStaleDriversOffline(t *testing.T) {
	now := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	first := models.Driver{ID: uuid.New()}
	second := models.Driver{ID: uuid.New()}
	repo := &fakePresenceRepo{stale: []models.Driver{first, second}}
	job := newPresenceTimeoutJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.Add(-10 * time.Minute)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if len(repo.setCalls) != 2 {
		t.Fatalf("expected 2 presence updates, got %d", len(repo.setCalls))
	}
}

func TestPresenceTimeoutJobContinuesPastPerDriverFailures(t *testing.T) {
	failing := models.Driver{ID: uuid.New()}
	healthy := models.Driver{ID: uuid.New()}
	repo := &fakePresenceRepo{
		stale:    []models.Driver{failing, healthy},
		setErrBy: map[uuid.UUID]error{failing.ID: errors.New("deadlock")},
	}
	job := newPresenceTimeoutJob(t, repo)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(repo.setCalls) != 1 || repo.setCalls[0] != healthy.ID {
		t.Fatalf("expected healthy driver still flipped, got %v", repo.setCalls)
	}
}

func TestPresenceTimeoutJobPropagatesListErrors(t *testing.T) {
	repo := &fakePresenceRepo{listErr: errors.New("boom")}
	job := newPresenceTimeoutJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
