package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swiftdrop/driver-backend/pkg/enums"
)

// Driver represents the canonical courier identity entity.
type Driver struct {
	ID              uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email           string               `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash    string               `gorm:"column:password_hash;not null"`
	FirstName       string               `gorm:"column:first_name;not null"`
	LastName        string               `gorm:"column:last_name;not null"`
	Phone           *string              `gorm:"column:phone"`
	DriverType      enums.DriverType     `gorm:"column:driver_type;type:driver_type;not null;default:'permanent'"`
	Status          enums.DriverStatus   `gorm:"column:status;type:driver_status;not null;default:'pending'"`
	OnlineStatus    enums.PresenceStatus `gorm:"column:online_status;type:presence_status;not null;default:'offline'"`
	VehicleType     *string              `gorm:"column:vehicle_type"`
	VehicleReg      *string              `gorm:"column:vehicle_registration"`
	LicenseNumber   *string              `gorm:"column:license_number"`
	ProfileImageURL *string              `gorm:"column:profile_image_url"`
	Latitude        *float64             `gorm:"column:latitude;type:double precision"`
	Longitude       *float64             `gorm:"column:longitude;type:double precision"`
	LastSeenAt      *time.Time           `gorm:"column:last_seen_at"`
	TotalDeliveries int                  `gorm:"column:total_deliveries;not null;default:0"`
	Rating          *decimal.Decimal     `gorm:"column:rating;type:numeric(3,2)"`
	LastLoginAt     *time.Time           `gorm:"column:last_login_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
