package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/internal/drivers"
	"github.com/swiftdrop/driver-backend/pkg/config"
	"github.com/swiftdrop/driver-backend/pkg/db"
	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/security"
)

// RegisterService handles driver onboarding.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*DriverDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerDriverRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Driver, error)
	Create(ctx context.Context, driver *models.Driver) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	TxRunner          txRunner
	DriverRepoFactory func(tx *gorm.DB) registerDriverRepository
	PasswordConfig    config.PasswordConfig
}

type registerService struct {
	tx          txRunner
	repoFactory func(tx *gorm.DB) registerDriverRepository
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	factory := params.DriverRepoFactory
	if factory == nil {
		factory = func(tx *gorm.DB) registerDriverRepository {
			return drivers.NewRepository(tx)
		}
	}
	return &registerService{
		tx:          params.TxRunner,
		repoFactory: factory,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register creates a driver account awaiting back-office approval: a new
// account is always permanent class, pending status, offline.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*DriverDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.Driver
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFactory(tx)

		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check driver email")
		}

		created = &models.Driver{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    firstName,
			LastName:     lastName,
			Phone:        req.Phone,
			DriverType:   enums.DriverTypePermanent,
			Status:       enums.DriverStatusPending,
			OnlineStatus: enums.PresenceStatusOffline,
			VehicleType:  req.VehicleType,
			VehicleReg:   req.VehicleReg,
		}
		if err := repo.Create(ctx, created); err != nil {
			// race with a concurrent registration slipping past FindByEmail
			if db.IsUniqueViolation(err, "email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create driver")
		}
		return nil
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register driver")
	}
	return FromModel(created), nil
}
