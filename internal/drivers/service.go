package drivers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/events"
)

type eventPublisher interface {
	PublishEventAsync(ctx context.Context, eventType enums.EventType, actor *events.ActorRef, data any)
}

// Service exposes driver profile and presence operations.
type Service interface {
	Profile(ctx context.Context, driverID uuid.UUID) (*models.Driver, error)
	UpdateProfile(ctx context.Context, driverID uuid.UUID, input UpdateProfileInput) (*models.Driver, error)
	SetPresence(ctx context.Context, driverID uuid.UUID, status enums.PresenceStatus) (*models.Driver, error)
}

// UpdateProfileInput carries the editable driver profile fields. Nil fields
// are left untouched.
type UpdateProfileInput struct {
	FirstName       *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName        *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	VehicleType     *string `json:"vehicle_type" validate:"omitempty,max=50"`
	VehicleReg      *string `json:"vehicle_registration" validate:"omitempty,max=20"`
	LicenseNumber   *string `json:"license_number" validate:"omitempty,max=50"`
	ProfileImageURL *string `json:"profile_image_url" validate:"omitempty,url"`
}

// PresenceChangedEvent is published when a driver toggles online status.
type PresenceChangedEvent struct {
	DriverID uuid.UUID            `json:"driver_id"`
	Status   enums.PresenceStatus `json:"status"`
}

type service struct {
	repo   Repository
	events eventPublisher
	now    func() time.Time
}

// NewService wires a drivers service with the provided repository.
func NewService(repo Repository, publisher eventPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("drivers repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	return &service{repo: repo, events: publisher, now: time.Now}, nil
}

func (s *service) Profile(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}
	return s.load(ctx, driverID)
}

func (s *service) UpdateProfile(ctx context.Context, driverID uuid.UUID, input UpdateProfileInput) (*models.Driver, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}

	updates := map[string]any{}
	setTrimmed := func(column string, value *string, required bool) error {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		if required && trimmed == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, column+" cannot be blank")
		}
		updates[column] = trimmed
		return nil
	}

	if err := setTrimmed("first_name", input.FirstName, true); err != nil {
		return nil, err
	}
	if err := setTrimmed("last_name", input.LastName, true); err != nil {
		return nil, err
	}
	if err := setTrimmed("phone", input.Phone, false); err != nil {
		return nil, err
	}
	if err := setTrimmed("vehicle_type", input.VehicleType, false); err != nil {
		return nil, err
	}
	if err := setTrimmed("vehicle_registration", input.VehicleReg, false); err != nil {
		return nil, err
	}
	if err := setTrimmed("license_number", input.LicenseNumber, false); err != nil {
		return nil, err
	}
	if err := setTrimmed("profile_image_url", input.ProfileImageURL, false); err != nil {
		return nil, err
	}

	if len(updates) == 0 {
		return s.load(ctx, driverID)
	}
	updates["updated_at"] = s.now().UTC()

	if _, err := s.load(ctx, driverID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, driverID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update driver profile")
	}
	return s.load(ctx, driverID)
}

// SetPresence toggles the driver online or offline. Temporary-class drivers
// may only go online while their latest activation window is active.
func (s *service) SetPresence(ctx context.Context, driverID uuid.UUID, status enums.PresenceStatus) (*models.Driver, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid presence status %q", status))
	}

	driver, err := s.load(ctx, driverID)
	if err != nil {
		return nil, err
	}

	if status == enums.PresenceStatusOnline && driver.DriverType == enums.DriverTypeTemporary {
		activation, err := s.repo.LatestActivation(ctx, driverID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load activation")
		}
		if !activationAllows(activation, s.now()) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "temporary driver hiring not active")
		}
	}

	now := s.now().UTC()
	if err := s.repo.SetPresence(ctx, driverID, status, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set presence")
	}

	s.events.PublishEventAsync(ctx, enums.EventActivationChanged, &events.ActorRef{DriverID: driverID, Role: "driver"}, PresenceChangedEvent{
		DriverID: driverID,
		Status:   status,
	})

	driver.OnlineStatus = status
	driver.LastSeenAt = &now
	return driver, nil
}

func (s *service) load(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	driver, err := s.repo.FindByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	return driver, nil
}

// activationAllows applies the latest-row-wins rule: no row means not hired,
// the is_active flag gates, and an optional window bounds it further.
func activationAllows(activation *models.TemporaryActivation, now time.Time) bool {
	if activation == nil || !activation.IsActive {
		return false
	}
	if activation.StartsAt != nil && now.Before(*activation.StartsAt) {
		return false
	}
	if activation.EndsAt != nil && now.After(*activation.EndsAt) {
		return false
	}
	return true
}
