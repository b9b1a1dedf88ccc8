package earnings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/pagination"
)

// Service exposes the earnings ledger and its aggregates.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordDeliveryEarning(ctx context.Context, input RecordDeliveryEarningInput) (*models.Earning, error)
	List(ctx context.Context, driverID uuid.UUID, params pagination.Params) (*EarningPage, error)
	Summary(ctx context.Context, driverID uuid.UUID) (*Summary, error)
	PeriodTotal(ctx context.Context, driverID uuid.UUID, period Period) (decimal.Decimal, error)
}

// RecordDeliveryEarningInput captures the data a delivery payout row requires.
type RecordDeliveryEarningInput struct {
	DriverID    uuid.UUID
	DeliveryID  uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// Period selects an aggregation window for earnings totals.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod converts raw query input into a Period, defaulting to all time.
func ParsePeriod(value string) (Period, error) {
	switch Period(value) {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll:
		return Period(value), nil
	case "":
		return PeriodAll, nil
	}
	return "", fmt.Errorf("invalid earnings period %q", value)
}

// Summary aggregates a driver's earnings across the standard windows.
type Summary struct {
	Total          decimal.Decimal `json:"total"`
	Today          decimal.Decimal `json:"today"`
	Week           decimal.Decimal `json:"week"`
	Month          decimal.Decimal `json:"month"`
	CompletedCount int64           `json:"completed_count"`
	AvgPerDelivery decimal.Decimal `json:"avg_per_delivery"`
	Currency       enums.Currency  `json:"currency"`
}

type service struct {
	repo     Repository
	currency enums.Currency
	now      func() time.Time
}

// NewService wires an earnings service with the provided repository.
func NewService(repo Repository, currency enums.Currency) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("earnings repository required")
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("invalid earnings currency %q", currency)
	}
	return &service{repo: repo, currency: currency, now: time.Now}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), currency: s.currency, now: s.now}
}

// RecordDeliveryEarning inserts the payout row for a completed delivery.
// At most one delivery-type row may exist per delivery.
func (s *service) RecordDeliveryEarning(ctx context.Context, input RecordDeliveryEarningInput) (*models.Earning, error) {
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if input.DeliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "earning amount cannot be negative")
	}

	exists, err := s.repo.ExistsForDelivery(ctx, input.DeliveryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing delivery earning")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "delivery earning already recorded")
	}

	deliveryID := input.DeliveryID
	earning := &models.Earning{
		DriverID:    input.DriverID,
		DeliveryID:  &deliveryID,
		Type:        enums.EarningTypeDelivery,
		Status:      enums.EarningStatusPending,
		Amount:      input.Amount,
		Currency:    s.currency,
		Description: input.Description,
	}
	if err := s.repo.Create(ctx, earning); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create earning")
	}
	return earning, nil
}

func (s *service) List(ctx context.Context, driverID uuid.UUID, params pagination.Params) (*EarningPage, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	page, err := s.repo.ListByDriver(ctx, driverID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list earnings")
	}
	return page, nil
}

func (s *service) Summary(ctx context.Context, driverID uuid.UUID) (*Summary, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}

	total, err := s.repo.SumByDriver(ctx, driverID, nil, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum earnings")
	}

	now := s.now()
	today, err := s.windowTotal(ctx, driverID, PeriodToday, now)
	if err != nil {
		return nil, err
	}
	week, err := s.windowTotal(ctx, driverID, PeriodWeek, now)
	if err != nil {
		return nil, err
	}
	month, err := s.windowTotal(ctx, driverID, PeriodMonth, now)
	if err != nil {
		return nil, err
	}

	completed, err := s.repo.CountDelivered(ctx, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count completed deliveries")
	}

	avg := decimal.Zero
	if completed > 0 {
		avg = total.Div(decimal.NewFromInt(completed)).Round(2)
	}

	return &Summary{
		Total:          total,
		Today:          today,
		Week:           week,
		Month:          month,
		CompletedCount: completed,
		AvgPerDelivery: avg,
		Currency:       s.currency,
	}, nil
}

func (s *service) PeriodTotal(ctx context.Context, driverID uuid.UUID, period Period) (decimal.Decimal, error) {
	if driverID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	return s.windowTotal(ctx, driverID, period, s.now())
}

func (s *service) windowTotal(ctx context.Context, driverID uuid.UUID, period Period, now time.Time) (decimal.Decimal, error) {
	since, until := periodWindow(period, now)
	total, err := s.repo.SumByDriver(ctx, driverID, since, until)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum earnings window")
	}
	return total, nil
}

// periodWindow returns the [since, until) bounds for a period relative to now.
// Today and month follow the local calendar; week is the trailing seven days.
func periodWindow(period Period, now time.Time) (*time.Time, *time.Time) {
	switch period {
	case PeriodToday:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 0, 1)
		return &start, &end
	case PeriodWeek:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -6)
		return &start, nil
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, 0)
		return &start, &end
	default:
		return nil, nil
	}
}
