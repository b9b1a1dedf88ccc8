package models

import (
	"time"

	"github.com/google/uuid"
)

// DriverLocation is an append-only breadcrumb in the location history trail.
type DriverLocation struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID   uuid.UUID `gorm:"column:driver_id;type:uuid;not null;index"`
	Latitude   float64   `gorm:"column:latitude;type:double precision;not null"`
	Longitude  float64   `gorm:"column:longitude;type:double precision;not null"`
	AccuracyM  *float64  `gorm:"column:accuracy_m;type:double precision"`
	SpeedMPS   *float64  `gorm:"column:speed_mps;type:double precision"`
	Heading    *float64  `gorm:"column:heading;type:double precision"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
