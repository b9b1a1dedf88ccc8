package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to drivers.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID  uuid.UUID              `gorm:"column:driver_id;type:uuid;not null;index"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	Data      json.RawMessage        `gorm:"column:data;type:jsonb"`
	IsRead    bool                   `gorm:"column:is_read;not null;default:false"`
	ReadAt    *time.Time             `gorm:"type:timestamptz"`
	CreatedAt time.Time              `gorm:"type:timestamptz;default:now()"`
}
