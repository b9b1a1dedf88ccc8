package deliveries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	"github.com/swiftdrop/driver-backend/pkg/pagination"
)

// Repository manages persistence for deliveries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID, filters ListFilters, params pagination.Params) (*DeliveryPage, error)
	UpdateGuarded(ctx context.Context, id, driverID uuid.UUID, from enums.DeliveryStatus, updates map[string]any) (int64, error)
}

// ListFilters narrows a driver's delivery listing.
type ListFilters struct {
	Status *enums.DeliveryStatus
}

// DeliveryPage is one cursor page of deliveries, most recent first.
type DeliveryPage struct {
	Deliveries []models.Delivery
	NextCursor string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a deliveries repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) ListByDriver(ctx context.Context, driverID uuid.UUID, filters ListFilters, params pagination.Params) (*DeliveryPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Delivery
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &DeliveryPage{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	page.Deliveries = rows
	return page, nil
}

// UpdateGuarded applies updates only when the row still belongs to the driver
// and sits in the expected source status. The rows-affected count lets callers
// distinguish a lost race from success.
func (r *repository) UpdateGuarded(ctx context.Context, id, driverID uuid.UUID, from enums.DeliveryStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND driver_id = ? AND status = ?", id, driverID, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}
