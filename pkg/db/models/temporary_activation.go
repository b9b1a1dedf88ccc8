package models

import (
	"time"

	"github.com/google/uuid"
)

// TemporaryActivation gates presence toggling for temporary drivers. Only the
// most recent row per driver is authoritative.
type TemporaryActivation struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID  uuid.UUID  `gorm:"column:driver_id;type:uuid;not null;index"`
	IsActive  bool       `gorm:"column:is_active;not null;default:false"`
	StartsAt  *time.Time `gorm:"column:starts_at"`
	EndsAt    *time.Time `gorm:"column:ends_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
