package deliveries

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/internal/earnings"
	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/events"
	"github.com/swiftdrop/driver-backend/pkg/pagination"
)

type fakeRepo struct {
	deliveries map[uuid.UUID]*models.Delivery
}

func newFakeRepo(seed ...*models.Delivery) *fakeRepo {
	repo := &fakeRepo{deliveries: map[uuid.UUID]*models.Delivery{}}
	for _, d := range seed {
		repo.deliveries[d.ID] = d
	}
	return repo
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	delivery, ok := f.deliveries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *delivery
	return &copied, nil
}

func (f *fakeRepo) ListByDriver(ctx context.Context, driverID uuid.UUID, filters ListFilters, params pagination.Params) (*DeliveryPage, error) {
	page := &DeliveryPage{}
	for _, d := range f.deliveries {
		if d.DriverID != nil && *d.DriverID == driverID {
			page.Deliveries = append(page.Deliveries, *d)
		}
	}
	return page, nil
}

func (f *fakeRepo) UpdateGuarded(ctx context.Context, id, driverID uuid.UUID, from enums.DeliveryStatus, updates map[string]any) (int64, error) {
	delivery, ok := f.deliveries[id]
	if !ok || delivery.DriverID == nil || *delivery.DriverID != driverID || delivery.Status != from {
		return 0, nil
	}
	if status, ok := updates["status"].(enums.DeliveryStatus); ok {
		delivery.Status = status
	}
	if url, ok := updates["proof_of_delivery_url"].(string); ok {
		delivery.ProofOfDeliveryURL = &url
	}
	if name, ok := updates["recipient_name"].(string); ok {
		delivery.RecipientName = &name
	}
	if fee, ok := updates["delivery_fee"].(decimal.Decimal); ok {
		delivery.DeliveryFee = &fee
	}
	if reason, ok := updates["decline_reason"].(string); ok {
		delivery.DeclineReason = &reason
	}
	return 1, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeEarnings struct {
	recorded []earnings.RecordDeliveryEarningInput
}

func (f *fakeEarnings) WithTx(tx *gorm.DB) earnings.Service { return f }

func (f *fakeEarnings) RecordDeliveryEarning(ctx context.Context, input earnings.RecordDeliveryEarningInput) (*models.Earning, error) {
	f.recorded = append(f.recorded, input)
	deliveryID := input.DeliveryID
	return &models.Earning{
		ID:         uuid.New(),
		DriverID:   input.DriverID,
		DeliveryID: &deliveryID,
		Amount:     input.Amount,
		Currency:   enums.CurrencyZAR,
	}, nil
}

func (f *fakeEarnings) List(ctx context.Context, driverID uuid.UUID, params pagination.Params) (*earnings.EarningPage, error) {
	return nil, nil
}

func (f *fakeEarnings) Summary(ctx context.Context, driverID uuid.UUID) (*earnings.Summary, error) {
	return nil, nil
}

func (f *fakeEarnings) PeriodTotal(ctx context.Context, driverID uuid.UUID, period earnings.Period) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type fakeDrivers struct {
	driverType  enums.DriverType
	incremented []uuid.UUID
}

func (f *fakeDrivers) FindByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	return &models.Driver{ID: driverID, DriverType: f.driverType}, nil
}

func (f *fakeDrivers) IncrementDeliveries(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) error {
	f.incremented = append(f.incremented, driverID)
	return nil
}

type publishedEvent struct {
	eventType enums.EventType
	data      any
}

type fakePublisher struct {
	published []publishedEvent
}

func (f *fakePublisher) PublishEventAsync(ctx context.Context, eventType enums.EventType, actor *events.ActorRef, data any) {
	f.published = append(f.published, publishedEvent{eventType: eventType, data: data})
}

type serviceFixture struct {
	svc      Service
	repo     *fakeRepo
	earnings *fakeEarnings
	drivers  *fakeDrivers
	events   *fakePublisher
}

func newFixture(t *testing.T, seed ...*models.Delivery) *serviceFixture {
	t.Helper()

	repo := newFakeRepo(seed...)
	earningsSvc := &fakeEarnings{}
	drivers := &fakeDrivers{driverType: enums.DriverTypePermanent}
	publisher := &fakePublisher{}
	svc, err := NewService(repo, fakeTx{}, earningsSvc, drivers, publisher)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return &serviceFixture{svc: svc, repo: repo, earnings: earningsSvc, drivers: drivers, events: publisher}
}

func assignedDelivery(driverID uuid.UUID, status enums.DeliveryStatus) *models.Delivery {
	declared := decimal.NewFromInt(1000)
	pickupLat, pickupLng := -26.195, 28.034
	return &models.Delivery{
		ID:              uuid.New(),
		OrderNumber:     "ORD-1001",
		DriverID:        &driverID,
		Status:          status,
		CustomerName:    "Lerato K",
		PickupAddress:   "12 Harrison St",
		PickupLatitude:  &pickupLat,
		PickupLongitude: &pickupLng,
		DeliveryAddress: "88 Jan Smuts Ave",
		ItemsCount:      3,
		DeclaredValue:   &declared,
	}
}

func TestServiceAccept(t *testing.T) {
	driverID := uuid.New()
	delivery := assignedDelivery(driverID, enums.DeliveryStatusAssigned)
	fx := newFixture(t, delivery)

	updated, err := fx.svc.Accept(context.Background(), driverID, delivery.ID)
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if updated.Status != enums.DeliveryStatusAccepted {
		t.Fatalf("status = %s, want accepted", updated.Status)
	}
	if len(fx.events.published) != 1 || fx.events.published[0].eventType != enums.EventDeliveryStatusChanged {
		t.Fatalf("expected one status event, got %+v", fx.events.published)
	}
}

func TestServiceAccept_wrongSourceState(t *testing.T) {
	driverID := uuid.New()
	delivery := assignedDelivery(driverID, enums.DeliveryStatusInTransit)
	fx := newFixture(t, delivery)

	_, err := fx.svc.Accept(context.Background(), driverID, delivery.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(fx.events.published) != 0 {
		t.Fatal("no event should publish on conflict")
	}
}

func TestServiceAccept_otherDriversDelivery(t *testing.T) {
	delivery := assignedDelivery(uuid.New(), enums.DeliveryStatusAssigned)
	fx := newFixture(t, delivery)

	_, err := fx.svc.Accept(context.Background(), uuid.New(), delivery.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestServiceAccept_notFound(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Accept(context.Background(), uuid.New(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceDecline(t *testing.T) {
	driverID := uuid.New()
	delivery := assignedDelivery(driverID, enums.DeliveryStatusAssigned)
	fx := newFixture(t, delivery)

	reason := "vehicle breakdown"
	updated, err := fx.svc.Decline(context.Background(), driverID, delivery.ID, &reason)
	if err != nil {
		t.Fatalf("Decline error: %v", err)
	}
	if updated.Status != enums.DeliveryStatusDeclined {
		t.Fatalf("status = %s, want declined", updated.Status)
	}
	if updated.DeclineReason == nil || *updated.DeclineReason != reason {
		t.Fatalf("decline reason not stored: %+v", updated.DeclineReason)
	}
	if len(fx.events.published) != 1 || fx.events.published[0].eventType != enums.EventDeliveryCancelled {
		t.Fatalf("expected cancelled event, got %+v", fx.events.published)
	}
}

func TestServiceDeliver(t *testing.T) {
	driverID := uuid.New()
	delivery := assignedDelivery(driverID, enums.DeliveryStatusInTransit)
	fx := newFixture(t, delivery)

	updated, err := fx.svc.Deliver(context.Background(), DeliverInput{
		DriverID:      driverID,
		DeliveryID:    delivery.ID,
		ProofPhotoURL: "https://storage.googleapis.com/delivery-proofs/x.jpg",
		RecipientName: "  Sipho N  ",
	})
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if updated.Status != enums.DeliveryStatusDelivered {
		t.Fatalf("status = %s, want delivered", updated.Status)
	}
	if updated.RecipientName == nil || *updated.RecipientName != "Sipho N" {
		t.Fatalf("recipient not trimmed/stored: %+v", updated.RecipientName)
	}
	if updated.DeliveryFee == nil || !updated.DeliveryFee.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("fee mismatch: %+v", updated.DeliveryFee)
	}

	if len(fx.earnings.recorded) != 1 {
		t.Fatalf("expected one earning, got %d", len(fx.earnings.recorded))
	}
	if !fx.earnings.recorded[0].Amount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("earning amount mismatch: %s", fx.earnings.recorded[0].Amount)
	}
	if len(fx.drivers.incremented) != 1 || fx.drivers.incremented[0] != driverID {
		t.Fatalf("driver counter not incremented: %+v", fx.drivers.incremented)
	}
	if len(fx.events.published) != 2 {
		t.Fatalf("expected completed + earning events, got %+v", fx.events.published)
	}
}

func TestServiceDeliver_feeFromStoredProfile(t *testing.T) {
	driverID := uuid.New()
	delivery := assignedDelivery(driverID, enums.DeliveryStatusInTransit)
	fx := newFixture(t, delivery)
	fx.drivers.driverType = enums.DriverTypeTemporary

	updated, err := fx.svc.Deliver(context.Background(), DeliverInput{
		DriverID:      driverID,
		DeliveryID:    delivery.ID,
		ProofPhotoURL: "https://storage.googleapis.com/delivery-proofs/x.jpg",
		RecipientName: "Sipho N",
	})
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	// ceil(3/2) * 50 for the temporary class on record, not the permanent
	// class a stale token claim would have produced.
	if updated.DeliveryFee == nil || !updated.DeliveryFee.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("fee = %+v, want 100", updated.DeliveryFee)
	}
}

func TestServiceDeliver_missingProof(t *testing.T) {
	driverID := uuid.New()
	delivery := assignedDelivery(driverID, enums.DeliveryStatusInTransit)
	fx := newFixture(t, delivery)

	_, err := fx.svc.Deliver(context.Background(), DeliverInput{
		DriverID:      driverID,
		DeliveryID:    delivery.ID,
		ProofPhotoURL: "   ",
		RecipientName: "Sipho N",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(fx.earnings.recorded) != 0 {
		t.Fatal("no earning should be recorded")
	}
}

func TestServiceDeliver_blankRecipient(t *testing.T) {
	driverID := uuid.New()
	delivery := assignedDelivery(driverID, enums.DeliveryStatusInTransit)
	fx := newFixture(t, delivery)

	_, err := fx.svc.Deliver(context.Background(), DeliverInput{
		DriverID:      driverID,
		DeliveryID:    delivery.ID,
		ProofPhotoURL: "file:///tmp/proof.jpg",
		RecipientName: "   ",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceDeliver_wrongState(t *testing.T) {
	driverID := uuid.New()
	delivery := assignedDelivery(driverID, enums.DeliveryStatusAccepted)
	fx := newFixture(t, delivery)

	_, err := fx.svc.Deliver(context.Background(), DeliverInput{
		DriverID:      driverID,
		DeliveryID:    delivery.ID,
		ProofPhotoURL: "file:///tmp/proof.jpg",
		RecipientName: "Sipho N",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(fx.drivers.incremented) != 0 {
		t.Fatal("counter must not change on conflict")
	}
}

func TestServiceWaypoint(t *testing.T) {
	driverID := uuid.New()

	accepted := assignedDelivery(driverID, enums.DeliveryStatusAccepted)
	fx := newFixture(t, accepted)
	wp, err := fx.svc.Waypoint(context.Background(), driverID, accepted.ID)
	if err != nil {
		t.Fatalf("Waypoint error: %v", err)
	}
	if wp.Kind != WaypointPickup || wp.Latitude != -26.195 {
		t.Fatalf("expected pickup waypoint, got %+v", wp)
	}

	// Dropoff address has no coordinates; the fixed fallback applies.
	inTransit := assignedDelivery(driverID, enums.DeliveryStatusInTransit)
	fx = newFixture(t, inTransit)
	wp, err = fx.svc.Waypoint(context.Background(), driverID, inTransit.ID)
	if err != nil {
		t.Fatalf("Waypoint error: %v", err)
	}
	if wp.Kind != WaypointDropoff || wp.Latitude != fallbackLatitude || wp.Longitude != fallbackLongitude {
		t.Fatalf("expected fallback dropoff waypoint, got %+v", wp)
	}

	assigned := assignedDelivery(driverID, enums.DeliveryStatusAssigned)
	fx = newFixture(t, assigned)
	_, err = fx.svc.Waypoint(context.Background(), driverID, assigned.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for assigned, got %v", err)
	}
}

func TestServiceFullLifecycle(t *testing.T) {
	driverID := uuid.New()
	delivery := assignedDelivery(driverID, enums.DeliveryStatusAssigned)
	fx := newFixture(t, delivery)
	fx.drivers.driverType = enums.DriverTypeOld

	ctx := context.Background()
	if _, err := fx.svc.Accept(ctx, driverID, delivery.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := fx.svc.ConfirmPickup(ctx, driverID, delivery.ID); err != nil {
		t.Fatalf("ConfirmPickup: %v", err)
	}
	if _, err := fx.svc.Depart(ctx, driverID, delivery.ID); err != nil {
		t.Fatalf("Depart: %v", err)
	}
	updated, err := fx.svc.Deliver(ctx, DeliverInput{
		DriverID:      driverID,
		DeliveryID:    delivery.ID,
		ProofPhotoURL: "file:///tmp/proof.jpg",
		RecipientName: "Lerato K",
	})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if updated.Status != enums.DeliveryStatusDelivered {
		t.Fatalf("status = %s, want delivered", updated.Status)
	}
	// ceil(3/2) * 30 for the old class.
	if !updated.DeliveryFee.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("fee = %s, want 60", updated.DeliveryFee)
	}
}
