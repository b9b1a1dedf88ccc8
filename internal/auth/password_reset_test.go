package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/config"
	pkgmodels "github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/events"
	"github.com/swiftdrop/driver-backend/pkg/security"
)

var resetPasswordCfg = config.PasswordConfig{ResetTokenTTL: 30 * time.Minute}

type stubResetStore struct {
	values  map[string]string
	ttls    map[string]time.Duration
	revoked []string
}

func newStubResetStore() *stubResetStore {
	return &stubResetStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubResetStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *stubResetStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *stubResetStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *stubResetStore) PasswordResetKey(tokenHash string) string {
	return "sd:pwreset:" + tokenHash
}

func (s *stubResetStore) RevokeRefreshToken(ctx context.Context, driverID string) error {
	s.revoked = append(s.revoked, driverID)
	return nil
}

type stubResetRepo struct {
	driver    *pkgmodels.Driver
	passwords map[uuid.UUID]string
}

func (s *stubResetRepo) FindByEmail(ctx context.Context, email string) (*pkgmodels.Driver, error) {
	if s.driver != nil && s.driver.Email == email {
		return s.driver, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubResetRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	if s.passwords == nil {
		s.passwords = map[uuid.UUID]string{}
	}
	s.passwords[id] = passwordHash
	return nil
}

type stubResetPublisher struct {
	events []PasswordResetRequestedEvent
}

func (s *stubResetPublisher) PublishEventAsync(ctx context.Context, eventType enums.EventType, actor *events.ActorRef, data any) {
	if payload, ok := data.(PasswordResetRequestedEvent); ok {
		s.events = append(s.events, payload)
	}
}

func newResetFixture(t *testing.T, driver *pkgmodels.Driver) (PasswordResetService, *stubResetStore, *stubResetRepo, *stubResetPublisher) {
	t.Helper()

	store := newStubResetStore()
	repo := &stubResetRepo{driver: driver}
	publisher := &stubResetPublisher{}
	svc, err := NewPasswordResetService(PasswordResetServiceParams{
		DriverRepo:     repo,
		TokenStore:     store,
		Publisher:      publisher,
		PasswordConfig: resetPasswordCfg,
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, store, repo, publisher
}

func TestPasswordResetRequest_unknownEmailStaysSilent(t *testing.T) {
	svc, store, _, publisher := newResetFixture(t, nil)

	if err := svc.Request(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if len(store.values) != 0 {
		t.Fatal("no token should be stored for unknown emails")
	}
	if len(publisher.events) != 0 {
		t.Fatal("no event should be published for unknown emails")
	}
}

func TestPasswordResetRequest_issuesHashedToken(t *testing.T) {
	driver := activeDriver(t, enums.DriverStatusActive)
	svc, store, _, publisher := newResetFixture(t, driver)

	if err := svc.Request(context.Background(), "  Driver@Example.com "); err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one reset event, got %d", len(publisher.events))
	}
	issued := publisher.events[0]
	if issued.DriverID != driver.ID || issued.Email != driver.Email {
		t.Fatalf("event misattributed: %+v", issued)
	}
	if issued.Token == "" {
		t.Fatal("event must carry the raw token")
	}

	key := store.PasswordResetKey(hashResetToken(issued.Token))
	if stored := store.values[key]; stored != driver.ID.String() {
		t.Fatalf("stored owner = %q, want driver id", stored)
	}
	if store.ttls[key] != resetPasswordCfg.ResetTokenTTL {
		t.Fatalf("token ttl = %s, want %s", store.ttls[key], resetPasswordCfg.ResetTokenTTL)
	}
	// Only the hash may appear in the key.
	for storedKey := range store.values {
		if storedKey == store.PasswordResetKey(issued.Token) {
			t.Fatal("raw token leaked into the store key")
		}
	}
}

func TestPasswordResetConfirm_updatesPasswordOnce(t *testing.T) {
	driver := activeDriver(t, enums.DriverStatusActive)
	svc, store, repo, publisher := newResetFixture(t, driver)

	if err := svc.Request(context.Background(), driver.Email); err != nil {
		t.Fatalf("Request error: %v", err)
	}
	token := publisher.events[0].Token

	if err := svc.Confirm(context.Background(), token, "BrandNew9!"); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	hash, ok := repo.passwords[driver.ID]
	if !ok {
		t.Fatal("password never updated")
	}
	match, err := security.VerifyPassword("BrandNew9!", hash)
	if err != nil || !match {
		t.Fatalf("stored hash does not verify: match=%v err=%v", match, err)
	}
	if len(store.revoked) != 1 || store.revoked[0] != driver.ID.String() {
		t.Fatalf("refresh token not revoked: %+v", store.revoked)
	}

	// second redemption of the same token must fail
	err = svc.Confirm(context.Background(), token, "AnotherOne1!")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized on reuse, got %v", err)
	}
}

func TestPasswordResetConfirm_rejectsUnknownToken(t *testing.T) {
	svc, _, repo, _ := newResetFixture(t, nil)

	err := svc.Confirm(context.Background(), "bogus-token", "BrandNew9!")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(repo.passwords) != 0 {
		t.Fatal("password must not change for unknown tokens")
	}
}

func TestPasswordResetConfirm_rejectsShortPassword(t *testing.T) {
	driver := activeDriver(t, enums.DriverStatusActive)
	svc, _, _, publisher := newResetFixture(t, driver)

	if err := svc.Request(context.Background(), driver.Email); err != nil {
		t.Fatalf("Request error: %v", err)
	}

	err := svc.Confirm(context.Background(), publisher.events[0].Token, "short")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
