package drivers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
)

// Repository exposes driver persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, driver *models.Driver) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	FindByEmail(ctx context.Context, email string) (*models.Driver, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetPresence(ctx context.Context, id uuid.UUID, status enums.PresenceStatus, at time.Time) error
	UpdatePosition(ctx context.Context, id uuid.UUID, lat, lng float64, at time.Time) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	IncrementDeliveries(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	LatestActivation(ctx context.Context, driverID uuid.UUID) (*models.TemporaryActivation, error)
	ListStalePresence(ctx context.Context, olderThan time.Time) ([]models.Driver, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a drivers repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, driver *models.Driver) error {
	return r.db.WithContext(ctx).Create(driver).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).First(&driver, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) SetPresence(ctx context.Context, id uuid.UUID, status enums.PresenceStatus, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"online_status": status,
			"last_seen_at":  at,
			"updated_at":    at,
		}).Error
}

// UpdatePosition overwrites the driver's live coordinate and last-seen marker.
func (r *repository) UpdatePosition(ctx context.Context, id uuid.UUID, lat, lng float64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"latitude":     lat,
			"longitude":    lng,
			"last_seen_at": at,
		}).Error
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", passwordHash).Error
}

func (r *repository) IncrementDeliveries(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", id).
		UpdateColumn("total_deliveries", gorm.Expr("total_deliveries + 1")).Error
}

// LatestActivation returns the newest activation row for the driver, or nil
// when none exists.
func (r *repository) LatestActivation(ctx context.Context, driverID uuid.UUID) (*models.TemporaryActivation, error) {
	var activation models.TemporaryActivation
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("created_at DESC").
		First(&activation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &activation, nil
}

func (r *repository) ListStalePresence(ctx context.Context, olderThan time.Time) ([]models.Driver, error) {
	var stale []models.Driver
	err := r.db.WithContext(ctx).
		Where("online_status = ?", enums.PresenceStatusOnline).
		Where("last_seen_at IS NULL OR last_seen_at < ?", olderThan).
		Find(&stale).Error
	if err != nil {
		return nil, err
	}
	return stale, nil
}
