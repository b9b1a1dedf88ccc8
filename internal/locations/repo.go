package locations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
)

// Repository manages the append-only location history trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, location *models.DriverLocation) error
	ListByDriver(ctx context.Context, driverID uuid.UUID, since time.Time, limit int) ([]models.DriverLocation, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a locations repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, location *models.DriverLocation) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *repository) ListByDriver(ctx context.Context, driverID uuid.UUID, since time.Time, limit int) ([]models.DriverLocation, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.DriverLocation
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND recorded_at >= ?", driverID, since).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan prunes history rows past the retention window.
func (r *repository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("recorded_at < ?", before).
		Delete(&models.DriverLocation{})
	return result.RowsAffected, result.Error
}
