package earnings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	"github.com/swiftdrop/driver-backend/pkg/pagination"
)

// Repository manages persistence for earnings rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, earning *models.Earning) error
	ExistsForDelivery(ctx context.Context, deliveryID uuid.UUID) (bool, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID, params pagination.Params) (*EarningPage, error)
	SumByDriver(ctx context.Context, driverID uuid.UUID, since, until *time.Time) (decimal.Decimal, error)
	CountDelivered(ctx context.Context, driverID uuid.UUID) (int64, error)
}

// EarningPage is one cursor page of earnings rows, most recent first.
type EarningPage struct {
	Earnings   []models.Earning
	NextCursor string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an earnings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, earning *models.Earning) error {
	return r.db.WithContext(ctx).Create(earning).Error
}

func (r *repository) ExistsForDelivery(ctx context.Context, deliveryID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("delivery_id = ? AND type = ?", deliveryID, enums.EarningTypeDelivery).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByDriver(ctx context.Context, driverID uuid.UUID, params pagination.Params) (*EarningPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

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

	var rows []models.Earning
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &EarningPage{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	page.Earnings = rows
	return page, nil
}

// SumByDriver totals non-cancelled earnings for the driver, optionally bounded
// by a [since, until) window on created_at.
func (r *repository) SumByDriver(ctx context.Context, driverID uuid.UUID, since, until *time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("driver_id = ? AND status <> ?", driverID, enums.EarningStatusCancelled)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	if until != nil {
		query = query.Where("created_at < ?", *until)
	}

	var total decimal.NullDecimal
	if err := query.Select("SUM(amount)").Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) CountDelivered(ctx context.Context, driverID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("driver_id = ? AND status = ?", driverID, enums.DeliveryStatusDelivered).
		Count(&count).Error
	return count, err
}
