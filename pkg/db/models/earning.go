package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swiftdrop/driver-backend/pkg/enums"
)

// Earning records an immutable payout line tied to a driver and, usually, a delivery.
type Earning struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID    uuid.UUID           `gorm:"column:driver_id;type:uuid;not null;index"`
	DeliveryID  *uuid.UUID          `gorm:"column:delivery_id;type:uuid;index"`
	Type        enums.EarningType   `gorm:"column:type;type:earning_type;not null;default:'delivery'"`
	Status      enums.EarningStatus `gorm:"column:status;type:earning_status;not null;default:'pending'"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency    enums.Currency      `gorm:"column:currency;type:text;not null;default:'ZAR'"`
	Description string              `gorm:"column:description;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
