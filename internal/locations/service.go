package locations

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/metrics"
)

const maxBatchSize = 50

type driverPositions interface {
	UpdatePosition(ctx context.Context, id uuid.UUID, lat, lng float64, at time.Time) error
}

// Service handles device-submitted location reports.
type Service interface {
	Report(ctx context.Context, driverID uuid.UUID, samples []SampleInput) (*ReportResult, error)
	History(ctx context.Context, driverID uuid.UUID, since time.Time, limit int) ([]models.DriverLocation, error)
}

// SampleInput is one device GPS fix.
type SampleInput struct {
	Latitude   float64   `json:"latitude" validate:"required,latitude"`
	Longitude  float64   `json:"longitude" validate:"required,longitude"`
	AccuracyM  *float64  `json:"accuracy_m,omitempty"`
	SpeedMPS   *float64  `json:"speed_mps,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ReportResult summarizes a processed batch.
type ReportResult struct {
	Stored int `json:"stored"`
}

type service struct {
	repo    Repository
	drivers driverPositions
	metrics *metrics.TrackingMetrics
	now     func() time.Time
}

// NewService wires a locations service with the provided dependencies.
func NewService(repo Repository, drivers driverPositions, tracking *metrics.TrackingMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("locations repository required")
	}
	if drivers == nil {
		return nil, fmt.Errorf("driver positions required")
	}
	return &service{repo: repo, drivers: drivers, metrics: tracking, now: time.Now}, nil
}

// Report appends each sample to the history trail and overwrites the driver's
// live position with the newest fix.
func (s *service) Report(ctx context.Context, driverID uuid.UUID, samples []SampleInput) (*ReportResult, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}
	if len(samples) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one sample required")
	}
	if len(samples) > maxBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("batch exceeds %d samples", maxBatchSize))
	}
	for _, sample := range samples {
		if sample.Latitude < -90 || sample.Latitude > 90 || sample.Longitude < -180 || sample.Longitude > 180 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinate out of range")
		}
	}

	ordered := make([]SampleInput, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})

	now := s.now().UTC()
	for _, sample := range ordered {
		recordedAt := sample.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = now
		}
		row := &models.DriverLocation{
			DriverID:   driverID,
			Latitude:   sample.Latitude,
			Longitude:  sample.Longitude,
			AccuracyM:  sample.AccuracyM,
			SpeedMPS:   sample.SpeedMPS,
			Heading:    sample.Heading,
			RecordedAt: recordedAt,
		}
		if err := s.repo.Append(ctx, row); err != nil {
			s.metrics.IncReport(metrics.ReportOutcomeFailed)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append location")
		}
		s.metrics.IncReport(metrics.ReportOutcomeStored)
	}

	latest := ordered[len(ordered)-1]
	seenAt := latest.RecordedAt
	if seenAt.IsZero() {
		seenAt = now
	}
	if err := s.drivers.UpdatePosition(ctx, driverID, latest.Latitude, latest.Longitude, seenAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update driver position")
	}

	return &ReportResult{Stored: len(ordered)}, nil
}

func (s *service) History(ctx context.Context, driverID uuid.UUID, since time.Time, limit int) ([]models.DriverLocation, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}
	rows, err := s.repo.ListByDriver(ctx, driverID, since, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list locations")
	}
	return rows, nil
}
