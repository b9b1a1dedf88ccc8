package deliveries

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
	"github.com/swiftdrop/driver-backend/pkg/pagination"
)

func setupDeliveriesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS deliveries (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  driver_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  customer_name TEXT NOT NULL DEFAULT '',
  customer_phone TEXT,
  pickup_address TEXT NOT NULL DEFAULT '',
  pickup_latitude REAL,
  pickup_longitude REAL,
  delivery_address TEXT NOT NULL DEFAULT '',
  delivery_latitude REAL,
  delivery_longitude REAL,
  items_count INTEGER NOT NULL DEFAULT 0,
  declared_value NUMERIC,
  delivery_fee NUMERIC,
  proof_of_delivery_url TEXT,
  recipient_name TEXT,
  delivery_notes TEXT,
  decline_reason TEXT,
  customer_rating INTEGER,
  customer_feedback TEXT,
  assigned_at DATETIME,
  accepted_at DATETIME,
  picked_up_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  failed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func createDelivery(t *testing.T, db *gorm.DB, driverID *uuid.UUID, status enums.DeliveryStatus, created time.Time) *models.Delivery {
	t.Helper()

	delivery := &models.Delivery{
		ID:              uuid.New(),
		OrderNumber:     "ORD-" + uuid.NewString()[:8],
		DriverID:        driverID,
		Status:          status,
		CustomerName:    "Thabo M",
		PickupAddress:   "12 Harrison St",
		DeliveryAddress: "88 Jan Smuts Ave",
		ItemsCount:      2,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	require.NoError(t, db.Create(delivery).Error)
	return delivery
}

func TestRepositoryListByDriver(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	driverID := uuid.New()
	now := time.Now().UTC()
	createDelivery(t, db, &driverID, enums.DeliveryStatusDelivered, now.Add(-2*time.Hour))
	assigned := createDelivery(t, db, &driverID, enums.DeliveryStatusAssigned, now)
	createDelivery(t, db, nil, enums.DeliveryStatusPending, now)

	page, err := repo.ListByDriver(context.Background(), driverID, ListFilters{}, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Deliveries, 1)
	assert.Equal(t, assigned.ID, page.Deliveries[0].ID)
	assert.NotEmpty(t, page.NextCursor)

	second, err := repo.ListByDriver(context.Background(), driverID, ListFilters{}, pagination.Params{Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Deliveries, 1)
	assert.Equal(t, enums.DeliveryStatusDelivered, second.Deliveries[0].Status)
	assert.Empty(t, second.NextCursor)

	status := enums.DeliveryStatusAssigned
	filtered, err := repo.ListByDriver(context.Background(), driverID, ListFilters{Status: &status}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, filtered.Deliveries, 1)
	assert.Equal(t, assigned.ID, filtered.Deliveries[0].ID)
}

func TestRepositoryUpdateGuarded(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	driverID := uuid.New()
	delivery := createDelivery(t, db, &driverID, enums.DeliveryStatusAssigned, time.Now().UTC())

	affected, err := repo.UpdateGuarded(context.Background(), delivery.ID, driverID, enums.DeliveryStatusAssigned, map[string]any{
		"status": enums.DeliveryStatusAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Same source state no longer matches.
	affected, err = repo.UpdateGuarded(context.Background(), delivery.ID, driverID, enums.DeliveryStatusAssigned, map[string]any{
		"status": enums.DeliveryStatusAccepted,
	})
	require.NoError(t, err)
	assert.Zero(t, affected)

	// A different driver never matches.
	affected, err = repo.UpdateGuarded(context.Background(), delivery.ID, uuid.New(), enums.DeliveryStatusAccepted, map[string]any{
		"status": enums.DeliveryStatusPickedUp,
	})
	require.NoError(t, err)
	assert.Zero(t, affected)

	reloaded, err := repo.FindByID(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusAccepted, reloaded.Status)
}

func TestRepositoryFindByID_notFound(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryReadsCustomerRating(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	driverID := uuid.New()
	delivery := createDelivery(t, db, &driverID, enums.DeliveryStatusDelivered, time.Now().UTC())

	// Rating and feedback arrive from the customer side; this service only reads them.
	rating := 4
	feedback := "Left at the gate as asked."
	require.NoError(t, db.Model(&models.Delivery{}).Where("id = ?", delivery.ID).Updates(map[string]any{
		"customer_rating":   rating,
		"customer_feedback": feedback,
	}).Error)

	found, err := repo.FindByID(context.Background(), delivery.ID)
	require.NoError(t, err)
	require.NotNil(t, found.CustomerRating)
	assert.Equal(t, rating, *found.CustomerRating)
	require.NotNil(t, found.CustomerFeedback)
	assert.Equal(t, feedback, *found.CustomerFeedback)
}
