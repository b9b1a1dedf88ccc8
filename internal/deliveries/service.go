package deliveries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

// Fallback waypoint when a delivery address carries no coordinates
// (Johannesburg CBD).
const (
	fallbackLatitude  = -26.2041
	fallbackLongitude = 28.0473
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventPublisher interface {
	PublishEventAsync(ctx context.Context, eventType enums.EventType, actor *events.ActorRef, data any)
}

// DriverDirectory exposes the driver lookups the lifecycle engine needs: the
// live profile for fee classification and the completed-delivery counter.
type DriverDirectory interface {
	FindByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error)
	IncrementDeliveries(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) error
}

// Service defines the driver-facing delivery lifecycle operations.
type Service interface {
	Get(ctx context.Context, driverID, deliveryID uuid.UUID) (*models.Delivery, error)
	List(ctx context.Context, driverID uuid.UUID, filters ListFilters, params pagination.Params) (*DeliveryPage, error)
	Accept(ctx context.Context, driverID, deliveryID uuid.UUID) (*models.Delivery, error)
	Decline(ctx context.Context, driverID, deliveryID uuid.UUID, reason *string) (*models.Delivery, error)
	ConfirmPickup(ctx context.Context, driverID, deliveryID uuid.UUID) (*models.Delivery, error)
	Depart(ctx context.Context, driverID, deliveryID uuid.UUID) (*models.Delivery, error)
	Deliver(ctx context.Context, input DeliverInput) (*models.Delivery, error)
	Waypoint(ctx context.Context, driverID, deliveryID uuid.UUID) (*Waypoint, error)
}

// DeliverInput carries the proof-of-delivery data for the final transition.
// The fee class comes from the stored driver profile, not the caller.
type DeliverInput struct {
	DriverID      uuid.UUID
	DeliveryID    uuid.UUID
	ProofPhotoURL string
	RecipientName string
	DeliveryNotes *string
}

// Waypoint is the coordinate a driver should navigate to next.
type Waypoint struct {
	Latitude  float64              `json:"latitude"`
	Longitude float64              `json:"longitude"`
	Address   string               `json:"address"`
	Kind      WaypointKind         `json:"kind"`
	Status    enums.DeliveryStatus `json:"status"`
}

// WaypointKind distinguishes the pickup leg from the dropoff leg.
type WaypointKind string

const (
	WaypointPickup  WaypointKind = "pickup"
	WaypointDropoff WaypointKind = "dropoff"
)

// DeliveryStatusEvent is published whenever a driver moves a delivery.
type DeliveryStatusEvent struct {
	DeliveryID  uuid.UUID            `json:"delivery_id"`
	OrderNumber string               `json:"order_number"`
	DriverID    uuid.UUID            `json:"driver_id"`
	From        enums.DeliveryStatus `json:"from"`
	To          enums.DeliveryStatus `json:"to"`
}

// DeliveryCompletedEvent is published after the delivered transition commits.
type DeliveryCompletedEvent struct {
	DeliveryID  uuid.UUID       `json:"delivery_id"`
	OrderNumber string          `json:"order_number"`
	DriverID    uuid.UUID       `json:"driver_id"`
	Fee         decimal.Decimal `json:"fee"`
	Currency    enums.Currency  `json:"currency"`
}

// EarningRecordedEvent is published alongside the payout row insert.
type EarningRecordedEvent struct {
	EarningID  uuid.UUID       `json:"earning_id"`
	DriverID   uuid.UUID       `json:"driver_id"`
	DeliveryID uuid.UUID       `json:"delivery_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   enums.Currency  `json:"currency"`
}

type service struct {
	repo     Repository
	tx       txRunner
	earnings earnings.Service
	drivers  DriverDirectory
	events   eventPublisher
	now      func() time.Time
}

// NewService builds a delivery lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, earningsSvc earnings.Service, drivers DriverDirectory, publisher eventPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if earningsSvc == nil {
		return nil, fmt.Errorf("earnings service required")
	}
	if drivers == nil {
		return nil, fmt.Errorf("driver directory required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		earnings: earningsSvc,
		drivers:  drivers,
		events:   publisher,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, driverID, deliveryID uuid.UUID) (*models.Delivery, error) {
	if err := requireIDs(driverID, deliveryID); err != nil {
		return nil, err
	}
	return s.loadOwned(ctx, s.repo, driverID, deliveryID)
}

func (s *service) List(ctx context.Context, driverID uuid.UUID, filters ListFilters, params pagination.Params) (*DeliveryPage, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery status %q", *filters.Status))
	}
	page, err := s.repo.ListByDriver(ctx, driverID, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries")
	}
	return page, nil
}

func (s *service) Accept(ctx context.Context, driverID, deliveryID uuid.UUID) (*models.Delivery, error) {
	now := s.now().UTC()
	return s.transition(ctx, driverID, deliveryID,
		enums.DeliveryStatusAssigned, enums.DeliveryStatusAccepted,
		map[string]any{
			"status":      enums.DeliveryStatusAccepted,
			"accepted_at": now,
			"updated_at":  now,
		})
}

func (s *service) Decline(ctx context.Context, driverID, deliveryID uuid.UUID, reason *string) (*models.Delivery, error) {
	now := s.now().UTC()
	updates := map[string]any{
		"status":     enums.DeliveryStatusDeclined,
		"updated_at": now,
	}
	if reason != nil && strings.TrimSpace(*reason) != "" {
		updates["decline_reason"] = strings.TrimSpace(*reason)
	}
	return s.transition(ctx, driverID, deliveryID,
		enums.DeliveryStatusAssigned, enums.DeliveryStatusDeclined, updates)
}

func (s *service) ConfirmPickup(ctx context.Context, driverID, deliveryID uuid.UUID) (*models.Delivery, error) {
	now := s.now().UTC()
	return s.transition(ctx, driverID, deliveryID,
		enums.DeliveryStatusAccepted, enums.DeliveryStatusPickedUp,
		map[string]any{
			"status":       enums.DeliveryStatusPickedUp,
			"picked_up_at": now,
			"updated_at":   now,
		})
}

func (s *service) Depart(ctx context.Context, driverID, deliveryID uuid.UUID) (*models.Delivery, error) {
	now := s.now().UTC()
	return s.transition(ctx, driverID, deliveryID,
		enums.DeliveryStatusPickedUp, enums.DeliveryStatusInTransit,
		map[string]any{
			"status":     enums.DeliveryStatusInTransit,
			"updated_at": now,
		})
}

// Deliver completes a delivery: proof of delivery is recorded, the fee is
// computed for the driver's class, a payout row is inserted and the driver's
// counter is incremented, all inside one transaction.
func (s *service) Deliver(ctx context.Context, input DeliverInput) (*models.Delivery, error) {
	if err := requireIDs(input.DriverID, input.DeliveryID); err != nil {
		return nil, err
	}
	proofURL := strings.TrimSpace(input.ProofPhotoURL)
	if proofURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof photo required")
	}
	recipient := strings.TrimSpace(input.RecipientName)
	if recipient == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient name required")
	}

	var (
		delivered *models.Delivery
		earning   *models.Earning
		fee       decimal.Decimal
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		delivery, err := s.loadOwned(ctx, repo, input.DriverID, input.DeliveryID)
		if err != nil {
			return err
		}

		driver, err := s.drivers.FindByID(ctx, input.DriverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver profile")
		}

		declared := decimal.Zero
		if delivery.DeclaredValue != nil {
			declared = *delivery.DeclaredValue
		}
		fee = earnings.Calculate(driver.DriverType, delivery.ItemsCount, declared)

		now := s.now().UTC()
		updates := map[string]any{
			"status":                enums.DeliveryStatusDelivered,
			"delivered_at":          now,
			"proof_of_delivery_url": proofURL,
			"recipient_name":        recipient,
			"delivery_fee":          fee,
			"updated_at":            now,
		}
		if input.DeliveryNotes != nil && strings.TrimSpace(*input.DeliveryNotes) != "" {
			updates["delivery_notes"] = strings.TrimSpace(*input.DeliveryNotes)
		}

		affected, err := repo.UpdateGuarded(ctx, input.DeliveryID, input.DriverID, enums.DeliveryStatusInTransit, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete delivery")
		}
		if affected == 0 {
			return stateConflict(delivery.Status, enums.DeliveryStatusDelivered)
		}

		earning, err = s.earnings.WithTx(tx).RecordDeliveryEarning(ctx, earnings.RecordDeliveryEarningInput{
			DriverID:    input.DriverID,
			DeliveryID:  input.DeliveryID,
			Amount:      fee,
			Description: "delivery " + delivery.OrderNumber,
		})
		if err != nil {
			return err
		}

		if err := s.drivers.IncrementDeliveries(ctx, tx, input.DriverID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment driver deliveries")
		}

		delivered, err = repo.FindByID(ctx, input.DeliveryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery")
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}

	actor := &events.ActorRef{DriverID: input.DriverID, Role: "driver"}
	s.events.PublishEventAsync(ctx, enums.EventDeliveryCompleted, actor, DeliveryCompletedEvent{
		DeliveryID:  delivered.ID,
		OrderNumber: delivered.OrderNumber,
		DriverID:    input.DriverID,
		Fee:         fee,
		Currency:    earning.Currency,
	})
	s.events.PublishEventAsync(ctx, enums.EventEarningRecorded, actor, EarningRecordedEvent{
		EarningID:  earning.ID,
		DriverID:   input.DriverID,
		DeliveryID: input.DeliveryID,
		Amount:     earning.Amount,
		Currency:   earning.Currency,
	})
	return delivered, nil
}

func (s *service) Waypoint(ctx context.Context, driverID, deliveryID uuid.UUID) (*Waypoint, error) {
	if err := requireIDs(driverID, deliveryID); err != nil {
		return nil, err
	}
	delivery, err := s.loadOwned(ctx, s.repo, driverID, deliveryID)
	if err != nil {
		return nil, err
	}

	switch delivery.Status {
	case enums.DeliveryStatusAccepted:
		return buildWaypoint(delivery, WaypointPickup), nil
	case enums.DeliveryStatusPickedUp, enums.DeliveryStatusInTransit:
		return buildWaypoint(delivery, WaypointDropoff), nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("no waypoint for delivery in status %s", delivery.Status))
}

// transition runs one guarded status move inside a transaction and publishes
// the status-changed event after commit.
func (s *service) transition(ctx context.Context, driverID, deliveryID uuid.UUID, from, to enums.DeliveryStatus, updates map[string]any) (*models.Delivery, error) {
	if err := requireIDs(driverID, deliveryID); err != nil {
		return nil, err
	}

	var updated *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		delivery, err := s.loadOwned(ctx, repo, driverID, deliveryID)
		if err != nil {
			return err
		}

		affected, err := repo.UpdateGuarded(ctx, deliveryID, driverID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery status")
		}
		if affected == 0 {
			return stateConflict(delivery.Status, to)
		}

		updated, err = repo.FindByID(ctx, deliveryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery")
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}

	s.events.PublishEventAsync(ctx, statusEventType(to), &events.ActorRef{DriverID: driverID, Role: "driver"}, DeliveryStatusEvent{
		DeliveryID:  updated.ID,
		OrderNumber: updated.OrderNumber,
		DriverID:    driverID,
		From:        from,
		To:          to,
	})
	return updated, nil
}

func (s *service) loadOwned(ctx context.Context, repo Repository, driverID, deliveryID uuid.UUID) (*models.Delivery, error) {
	delivery, err := repo.FindByID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	if delivery.DriverID == nil || *delivery.DriverID != driverID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery does not belong to driver")
	}
	return delivery, nil
}

func requireIDs(driverID, deliveryID uuid.UUID) error {
	if driverID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}
	if deliveryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	return nil
}

func stateConflict(current, target enums.DeliveryStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("delivery cannot move to %s from %s", target, current)).
		WithDetails(map[string]string{
			"current_status": current.String(),
			"target_status":  target.String(),
		})
}

func statusEventType(to enums.DeliveryStatus) enums.EventType {
	if to == enums.DeliveryStatusDeclined {
		return enums.EventDeliveryCancelled
	}
	return enums.EventDeliveryStatusChanged
}

// txError keeps typed errors raised inside the transaction; anything else is
// a dependency failure from commit or rollback.
func txError(err error) error {
	if appErr := pkgerrors.As(err); appErr != nil {
		return appErr
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delivery transaction")
}

func buildWaypoint(delivery *models.Delivery, kind WaypointKind) *Waypoint {
	wp := &Waypoint{
		Latitude:  fallbackLatitude,
		Longitude: fallbackLongitude,
		Kind:      kind,
		Status:    delivery.Status,
	}
	if kind == WaypointPickup {
		wp.Address = delivery.PickupAddress
		if delivery.PickupLatitude != nil && delivery.PickupLongitude != nil {
			wp.Latitude = *delivery.PickupLatitude
			wp.Longitude = *delivery.PickupLongitude
		}
		return wp
	}
	wp.Address = delivery.DeliveryAddress
	if delivery.DeliveryLatitude != nil && delivery.DeliveryLongitude != nil {
		wp.Latitude = *delivery.DeliveryLatitude
		wp.Longitude = *delivery.DeliveryLongitude
	}
	return wp
}
