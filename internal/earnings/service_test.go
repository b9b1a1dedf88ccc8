package earnings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn func(ctx context.Context, earning *models.Earning) error
	existsFn func(ctx context.Context, deliveryID uuid.UUID) (bool, error)
	sumFn    func(ctx context.Context, driverID uuid.UUID, since, until *time.Time) (decimal.Decimal, error)
	countFn  func(ctx context.Context, driverID uuid.UUID) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, earning *models.Earning) error {
	if f.createFn != nil {
		return f.createFn(ctx, earning)
	}
	return nil
}

func (f *fakeRepository) ExistsForDelivery(ctx context.Context, deliveryID uuid.UUID) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, deliveryID)
	}
	return false, nil
}

func (f *fakeRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, params pagination.Params) (*EarningPage, error) {
	return &EarningPage{}, nil
}

func (f *fakeRepository) SumByDriver(ctx context.Context, driverID uuid.UUID, since, until *time.Time) (decimal.Decimal, error) {
	if f.sumFn != nil {
		return f.sumFn(ctx, driverID, since, until)
	}
	return decimal.Zero, nil
}

func (f *fakeRepository) CountDelivered(ctx context.Context, driverID uuid.UUID) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx, driverID)
	}
	return 0, nil
}

func newTestService(t *testing.T, repo Repository) *service {
	t.Helper()

	svc, err := NewService(repo, enums.CurrencyZAR)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc.(*service)
}

func TestServiceRecordDeliveryEarning(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	var created *models.Earning
	repo.createFn = func(ctx context.Context, earning *models.Earning) error {
		created = earning
		return nil
	}

	input := RecordDeliveryEarningInput{
		DriverID:    uuid.New(),
		DeliveryID:  uuid.New(),
		Amount:      decimal.NewFromInt(60),
		Description: "delivery ORD-1001",
	}
	got, err := svc.RecordDeliveryEarning(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordDeliveryEarning error: %v", err)
	}
	if created == nil {
		t.Fatal("expected earning to be created")
	}
	if created.DriverID != input.DriverID || *created.DeliveryID != input.DeliveryID {
		t.Fatalf("unexpected earning identifiers: %+v", created)
	}
	if created.Type != enums.EarningTypeDelivery || created.Status != enums.EarningStatusPending {
		t.Fatalf("unexpected type/status: %s/%s", created.Type, created.Status)
	}
	if !created.Amount.Equal(input.Amount) || created.Currency != enums.CurrencyZAR {
		t.Fatalf("unexpected amount/currency: %s %s", created.Amount, created.Currency)
	}
	if got != created {
		t.Fatal("service should return created earning")
	}
}

func TestServiceRecordDeliveryEarning_duplicate(t *testing.T) {
	repo := &fakeRepository{
		existsFn: func(ctx context.Context, deliveryID uuid.UUID) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(t, repo)

	_, err := svc.RecordDeliveryEarning(context.Background(), RecordDeliveryEarningInput{
		DriverID:   uuid.New(),
		DeliveryID: uuid.New(),
		Amount:     decimal.NewFromInt(50),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestServiceRecordDeliveryEarning_validation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	cases := []struct {
		name  string
		input RecordDeliveryEarningInput
	}{
		{"missing driver", RecordDeliveryEarningInput{DeliveryID: uuid.New(), Amount: decimal.NewFromInt(10)}},
		{"missing delivery", RecordDeliveryEarningInput{DriverID: uuid.New(), Amount: decimal.NewFromInt(10)}},
		{"negative amount", RecordDeliveryEarningInput{DriverID: uuid.New(), DeliveryID: uuid.New(), Amount: decimal.NewFromInt(-1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordDeliveryEarning(context.Background(), tc.input)
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestServiceSummary(t *testing.T) {
	driverID := uuid.New()
	now := time.Date(2026, time.March, 18, 14, 30, 0, 0, time.UTC)

	repo := &fakeRepository{
		sumFn: func(ctx context.Context, id uuid.UUID, since, until *time.Time) (decimal.Decimal, error) {
			if id != driverID {
				return decimal.Zero, errors.New("wrong driver")
			}
			switch {
			case since == nil && until == nil:
				return decimal.NewFromInt(500), nil
			case since != nil && since.Equal(time.Date(2026, time.March, 18, 0, 0, 0, 0, time.UTC)):
				return decimal.NewFromInt(50), nil
			case since != nil && since.Equal(time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)):
				return decimal.NewFromInt(180), nil
			case since != nil && since.Equal(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)):
				return decimal.NewFromInt(420), nil
			}
			return decimal.Zero, errors.New("unexpected window")
		},
		countFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 8, nil
		},
	}

	svc := newTestService(t, repo)
	svc.now = func() time.Time { return now }

	summary, err := svc.Summary(context.Background(), driverID)
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if !summary.Total.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("total mismatch: %s", summary.Total)
	}
	if !summary.Today.Equal(decimal.NewFromInt(50)) || !summary.Week.Equal(decimal.NewFromInt(180)) || !summary.Month.Equal(decimal.NewFromInt(420)) {
		t.Fatalf("window mismatch: today=%s week=%s month=%s", summary.Today, summary.Week, summary.Month)
	}
	if summary.CompletedCount != 8 {
		t.Fatalf("completed count mismatch: %d", summary.CompletedCount)
	}
	if !summary.AvgPerDelivery.Equal(decimal.RequireFromString("62.5")) {
		t.Fatalf("avg mismatch: %s", summary.AvgPerDelivery)
	}
}

func TestServiceSummary_noCompletedDeliveries(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	summary, err := svc.Summary(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if !summary.AvgPerDelivery.IsZero() {
		t.Fatalf("expected zero average, got %s", summary.AvgPerDelivery)
	}
}

func TestParsePeriod(t *testing.T) {
	for raw, want := range map[string]Period{
		"":      PeriodAll,
		"today": PeriodToday,
		"week":  PeriodWeek,
		"month": PeriodMonth,
		"all":   PeriodAll,
	} {
		got, err := ParsePeriod(raw)
		if err != nil {
			t.Fatalf("ParsePeriod(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParsePeriod(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := ParsePeriod("year"); err == nil {
		t.Fatal("expected error for unknown period")
	}
}

func TestPeriodWindowMonthBoundaries(t *testing.T) {
	now := time.Date(2026, time.January, 31, 23, 0, 0, 0, time.UTC)
	since, until := periodWindow(PeriodMonth, now)
	if since == nil || until == nil {
		t.Fatal("expected bounded month window")
	}
	if !since.Equal(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("month start mismatch: %s", since)
	}
	if !until.Equal(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("month end mismatch: %s", until)
	}
}
