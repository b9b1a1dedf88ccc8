package locations

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
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
)

type fakePositions struct {
	driverID uuid.UUID
	lat, lng float64
	at       time.Time
	calls    int
}

func (f *fakePositions) UpdatePosition(ctx context.Context, id uuid.UUID, lat, lng float64, at time.Time) error {
	f.driverID = id
	f.lat = lat
	f.lng = lng
	f.at = at
	f.calls++
	return nil
}

func setupLocationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS driver_locations (
  id TEXT PRIMARY KEY,
  driver_id TEXT NOT NULL,
  latitude REAL NOT NULL,
  longitude REAL NOT NULL,
  accuracy_m REAL,
  speed_mps REAL,
  heading REAL,
  recorded_at DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestServiceReport(t *testing.T) {
	db := setupLocationsTestDB(t)
	positions := &fakePositions{}
	svc, err := NewService(NewRepository(db), positions, nil)
	require.NoError(t, err)

	driverID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	result, err := svc.Report(context.Background(), driverID, []SampleInput{
		{Latitude: -26.21, Longitude: 28.05, RecordedAt: now},
		{Latitude: -26.20, Longitude: 28.04, RecordedAt: now.Add(-30 * time.Second)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stored)

	// Driver position follows the newest fix regardless of batch order.
	assert.Equal(t, driverID, positions.driverID)
	assert.InDelta(t, -26.21, positions.lat, 0.0001)
	assert.Equal(t, 1, positions.calls)

	var count int64
	require.NoError(t, db.Model(&models.DriverLocation{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestServiceReportValidation(t *testing.T) {
	db := setupLocationsTestDB(t)
	svc, err := NewService(NewRepository(db), &fakePositions{}, nil)
	require.NoError(t, err)

	driverID := uuid.New()

	_, err = svc.Report(context.Background(), driverID, nil)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	_, err = svc.Report(context.Background(), driverID, []SampleInput{{Latitude: 95, Longitude: 10}})
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	_, err = svc.Report(context.Background(), uuid.Nil, []SampleInput{{Latitude: 0, Longitude: 0}})
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestRepositoryDeleteOlderThan(t *testing.T) {
	db := setupLocationsTestDB(t)
	repo := NewRepository(db)

	driverID := uuid.New()
	now := time.Now().UTC()
	for _, age := range []time.Duration{0, 24 * time.Hour, 40 * 24 * time.Hour} {
		row := &models.DriverLocation{
			ID:         uuid.New(),
			DriverID:   driverID,
			Latitude:   -26.2,
			Longitude:  28.0,
			RecordedAt: now.Add(-age),
		}
		require.NoError(t, repo.Append(context.Background(), row))
	}

	pruned, err := repo.DeleteOlderThan(context.Background(), now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	rows, err := repo.ListByDriver(context.Background(), driverID, now.AddDate(0, 0, -60), 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
