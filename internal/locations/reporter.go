package locations

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/config"
	"github.com/swiftdrop/driver-backend/pkg/logger"
	"github.com/swiftdrop/driver-backend/pkg/metrics"
)

// ErrPermissionDenied is returned by Start when the sampler refuses access.
var ErrPermissionDenied = errors.New("location permission denied")

// ErrAlreadyStarted is returned when Start is called on a running reporter.
var ErrAlreadyStarted = errors.New("reporter already started")

// Sample is one GPS fix delivered by a Sampler.
type Sample struct {
	Latitude   float64
	Longitude  float64
	AccuracyM  *float64
	SpeedMPS   *float64
	Heading    *float64
	RecordedAt time.Time
}

// Sampler abstracts the positioning source feeding a Reporter.
type Sampler interface {
	// Permission reports whether location access is granted.
	Permission(ctx context.Context) (bool, error)
	// Sample returns the current fix. High accuracy is expected for the
	// first call after Start.
	Sample(ctx context.Context) (Sample, error)
}

// Reporter drives the sampling loop for one driver: an immediate fix on
// start, then a stored report whenever the sample interval has elapsed or
// the distance filter is exceeded, whichever comes first. Persistence
// failures are logged and counted but never stop the loop.
type Reporter struct {
	driverID uuid.UUID
	sampler  Sampler
	service  Service
	cfg      config.TrackingConfig
	logg     *logger.Logger
	metrics  *metrics.TrackingMetrics

	poll time.Duration

	mu      sync.Mutex
	running bool
	stopped bool
	last    *Sample

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReporter builds a reporter bound to one driver session.
func NewReporter(driverID uuid.UUID, sampler Sampler, svc Service, cfg config.TrackingConfig, logg *logger.Logger, tracking *metrics.TrackingMetrics) *Reporter {
	poll := cfg.SampleInterval / 10
	if poll < time.Second {
		poll = time.Second
	}
	return &Reporter{
		driverID: driverID,
		sampler:  sampler,
		service:  svc,
		cfg:      cfg,
		logg:     logg,
		metrics:  tracking,
		poll:     poll,
		done:     make(chan struct{}),
	}
}

// Start asks the sampler for permission, stores one immediate fix, and spawns
// the polling loop. A denied permission leaves the reporter unstarted.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running || r.stopped {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.mu.Unlock()

	granted, err := r.sampler.Permission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return ErrPermissionDenied
	}

	sample, err := r.sampler.Sample(ctx)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		cancel()
		return ErrAlreadyStarted
	}
	r.running = true
	r.cancel = cancel
	r.store(loopCtx, sample)
	r.mu.Unlock()

	go r.loop(loopCtx)
	return nil
}

// Stop halts the loop synchronously: once it returns, no further samples are
// written. Safe to call more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	wasRunning := r.running
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasRunning {
		<-r.done
	}
}

func (r *Reporter) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := r.sampler.Sample(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.metrics.IncReport(metrics.ReportOutcomeFailed)
				r.logg.Warn(ctx, "location sample failed: "+err.Error())
				continue
			}
			r.deliver(ctx, sample)
		}
	}
}

// deliver applies the interval/distance policy and writes under the mutex so
// Stop serializes with sample delivery.
func (r *Reporter) deliver(ctx context.Context, sample Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	if r.last != nil {
		elapsed := sample.RecordedAt.Sub(r.last.RecordedAt)
		moved := HaversineM(r.last.Latitude, r.last.Longitude, sample.Latitude, sample.Longitude)
		if elapsed < r.cfg.SampleInterval && moved < r.cfg.DistanceFilterM {
			r.metrics.IncReport(metrics.ReportOutcomeSkipped)
			return
		}
		r.metrics.ObserveDistance(moved)
	}
	r.store(ctx, sample)
}

// store persists one fix; callers hold the mutex.
func (r *Reporter) store(ctx context.Context, sample Sample) {
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}
	_, err := r.service.Report(ctx, r.driverID, []SampleInput{{
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		AccuracyM:  sample.AccuracyM,
		SpeedMPS:   sample.SpeedMPS,
		Heading:    sample.Heading,
		RecordedAt: sample.RecordedAt,
	}})
	if err != nil {
		r.logg.Warn(ctx, "location report failed: "+err.Error())
		return
	}
	stored := sample
	r.last = &stored
}
