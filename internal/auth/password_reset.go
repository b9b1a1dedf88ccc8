package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/config"
	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/events"
	"github.com/swiftdrop/driver-backend/pkg/security"
)

const resetTokenBytes = 32

// PasswordResetService issues single-use reset tokens and applies the new
// password once a token is confirmed. Requests never reveal whether an email
// is registered.
type PasswordResetService interface {
	Request(ctx context.Context, email string) error
	Confirm(ctx context.Context, token, password string) error
}

type resetTokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	PasswordResetKey(tokenHash string) string
	RevokeRefreshToken(ctx context.Context, driverID string) error
}

type resetDriverRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Driver, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type resetEventPublisher interface {
	PublishEventAsync(ctx context.Context, eventType enums.EventType, actor *events.ActorRef, data any)
}

// PasswordResetRequestedEvent is consumed by the mail pipeline, which turns
// the token into a reset link.
type PasswordResetRequestedEvent struct {
	DriverID  uuid.UUID `json:"driver_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetServiceParams bundles the reset flow dependencies.
type PasswordResetServiceParams struct {
	DriverRepo     resetDriverRepository
	TokenStore     resetTokenStore
	Publisher      resetEventPublisher
	PasswordConfig config.PasswordConfig
}

type passwordResetService struct {
	drivers     resetDriverRepository
	store       resetTokenStore
	events      resetEventPublisher
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// NewPasswordResetService builds the reset flow with the provided dependencies.
func NewPasswordResetService(params PasswordResetServiceParams) (PasswordResetService, error) {
	if params.DriverRepo == nil {
		return nil, fmt.Errorf("driver repository is required")
	}
	if params.TokenStore == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	if params.PasswordConfig.ResetTokenTTL <= 0 {
		return nil, fmt.Errorf("reset token ttl must be positive")
	}
	return &passwordResetService{
		drivers:     params.DriverRepo,
		store:       params.TokenStore,
		events:      params.Publisher,
		passwordCfg: params.PasswordConfig,
		now:         time.Now,
	}, nil
}

// Request issues a reset token for the account, if one exists. Unknown emails
// return success without side effects so the endpoint cannot be used to
// enumerate registered accounts.
func (s *passwordResetService) Request(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	driver, err := s.drivers.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up driver email")
	}

	token, err := newResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}

	// Only the hash is stored; a leaked redis dump cannot redeem tokens.
	key := s.store.PasswordResetKey(hashResetToken(token))
	if err := s.store.Set(ctx, key, driver.ID.String(), s.passwordCfg.ResetTokenTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}

	s.events.PublishEventAsync(ctx, enums.EventPasswordResetRequest,
		&events.ActorRef{DriverID: driver.ID, Role: "driver"},
		PasswordResetRequestedEvent{
			DriverID:  driver.ID,
			Email:     driver.Email,
			Token:     token,
			ExpiresAt: s.now().UTC().Add(s.passwordCfg.ResetTokenTTL),
		})
	return nil
}

// Confirm redeems a token, replaces the password, and revokes the driver's
// refresh token so stale sessions cannot rotate.
func (s *passwordResetService) Confirm(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	if len(password) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	key := s.store.PasswordResetKey(hashResetToken(token))
	stored, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset token")
	}

	driverID, err := uuid.Parse(stored)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode reset token owner")
	}

	passwordHash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.drivers.UpdatePassword(ctx, driverID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}

	// Token is single use; drop it before anything can replay it.
	if err := s.store.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
	}
	if err := s.store.RevokeRefreshToken(ctx, driverID.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke refresh token")
	}
	return nil
}

func newResetToken() (string, error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
