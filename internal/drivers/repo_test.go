package drivers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
)

func setupDriversTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	drivers := `
CREATE TABLE IF NOT EXISTS drivers (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  phone TEXT,
  driver_type TEXT NOT NULL DEFAULT 'permanent',
  status TEXT NOT NULL DEFAULT 'pending',
  online_status TEXT NOT NULL DEFAULT 'offline',
  vehicle_type TEXT,
  vehicle_registration TEXT,
  license_number TEXT,
  profile_image_url TEXT,
  latitude REAL,
  longitude REAL,
  last_seen_at DATETIME,
  total_deliveries INTEGER NOT NULL DEFAULT 0,
  rating NUMERIC,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	activations := `
CREATE TABLE IF NOT EXISTS temporary_activations (
  id TEXT PRIMARY KEY,
  driver_id TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME,
  ends_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(drivers).Error)
	require.NoError(t, db.Exec(activations).Error)
	return db
}

func createDriver(t *testing.T, db *gorm.DB, email string, online enums.PresenceStatus, lastSeen *time.Time) *models.Driver {
	t.Helper()

	driver := &models.Driver{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "Driver",
		DriverType:   enums.DriverTypePermanent,
		Status:       enums.DriverStatusActive,
		OnlineStatus: online,
		LastSeenAt:   lastSeen,
	}
	require.NoError(t, db.Create(driver).Error)
	return driver
}

func TestRepositoryIncrementDeliveries(t *testing.T) {
	db := setupDriversTestDB(t)
	repo := NewRepository(db)

	driver := createDriver(t, db, "a@example.com", enums.PresenceStatusOffline, nil)

	require.NoError(t, repo.IncrementDeliveries(context.Background(), nil, driver.ID))
	require.NoError(t, repo.IncrementDeliveries(context.Background(), db, driver.ID))

	reloaded, err := repo.FindByID(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.TotalDeliveries)
}

func TestRepositoryUpdatePassword(t *testing.T) {
	db := setupDriversTestDB(t)
	repo := NewRepository(db)

	driver := createDriver(t, db, "reset@example.com", enums.PresenceStatusOffline, nil)

	require.NoError(t, repo.UpdatePassword(context.Background(), driver.ID, "argon2id$new"))

	reloaded, err := repo.FindByID(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Equal(t, "argon2id$new", reloaded.PasswordHash)
}

func TestRepositoryLatestActivation(t *testing.T) {
	db := setupDriversTestDB(t)
	repo := NewRepository(db)

	driver := createDriver(t, db, "b@example.com", enums.PresenceStatusOffline, nil)

	none, err := repo.LatestActivation(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	now := time.Now().UTC()
	old := &models.TemporaryActivation{ID: uuid.New(), DriverID: driver.ID, IsActive: true, CreatedAt: now.Add(-time.Hour)}
	latest := &models.TemporaryActivation{ID: uuid.New(), DriverID: driver.ID, IsActive: false, CreatedAt: now}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Create(latest).Error)

	got, err := repo.LatestActivation(context.Background(), driver.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, latest.ID, got.ID)
	assert.False(t, got.IsActive, "latest row wins even when older rows were active")
}

func TestRepositoryListStalePresence(t *testing.T) {
	db := setupDriversTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	fresh := now.Add(-time.Minute)
	stale := now.Add(-time.Hour)

	createDriver(t, db, "fresh@example.com", enums.PresenceStatusOnline, &fresh)
	staleDriver := createDriver(t, db, "stale@example.com", enums.PresenceStatusOnline, &stale)
	neverSeen := createDriver(t, db, "never@example.com", enums.PresenceStatusOnline, nil)
	createDriver(t, db, "offline@example.com", enums.PresenceStatusOffline, &stale)

	got, err := repo.ListStalePresence(context.Background(), now.Add(-10*time.Minute))
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(got))
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{staleDriver.ID, neverSeen.ID}, ids)
}

func TestRepositorySetPresenceAndPosition(t *testing.T) {
	db := setupDriversTestDB(t)
	repo := NewRepository(db)

	driver := createDriver(t, db, "c@example.com", enums.PresenceStatusOffline, nil)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetPresence(context.Background(), driver.ID, enums.PresenceStatusOnline, at))
	require.NoError(t, repo.UpdatePosition(context.Background(), driver.ID, -26.2041, 28.0473, at))

	reloaded, err := repo.FindByID(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PresenceStatusOnline, reloaded.OnlineStatus)
	require.NotNil(t, reloaded.Latitude)
	assert.InDelta(t, -26.2041, *reloaded.Latitude, 0.0001)
	require.NotNil(t, reloaded.LastSeenAt)
}
