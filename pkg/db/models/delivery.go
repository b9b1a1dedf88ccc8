package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swiftdrop/driver-backend/pkg/enums"
)

// Delivery represents a single courier job from assignment through proof of delivery.
type Delivery struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string               `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	DriverID    *uuid.UUID           `gorm:"column:driver_id;type:uuid;index"`
	Status      enums.DeliveryStatus `gorm:"column:status;type:delivery_status;not null;default:'pending'"`

	CustomerName  string  `gorm:"column:customer_name;not null"`
	CustomerPhone *string `gorm:"column:customer_phone"`

	PickupAddress     string   `gorm:"column:pickup_address;not null"`
	PickupLatitude    *float64 `gorm:"column:pickup_latitude;type:double precision"`
	PickupLongitude   *float64 `gorm:"column:pickup_longitude;type:double precision"`
	DeliveryAddress   string   `gorm:"column:delivery_address;not null"`
	DeliveryLatitude  *float64 `gorm:"column:delivery_latitude;type:double precision"`
	DeliveryLongitude *float64 `gorm:"column:delivery_longitude;type:double precision"`

	ItemsCount    int              `gorm:"column:items_count;not null;default:0"`
	DeclaredValue *decimal.Decimal `gorm:"column:declared_value;type:numeric(12,2)"`
	DeliveryFee   *decimal.Decimal `gorm:"column:delivery_fee;type:numeric(12,2)"`

	ProofOfDeliveryURL *string `gorm:"column:proof_of_delivery_url"`
	RecipientName      *string `gorm:"column:recipient_name"`
	DeliveryNotes      *string `gorm:"column:delivery_notes"`
	DeclineReason      *string `gorm:"column:decline_reason"`

	// Written by the customer-facing service after delivery; read-only here.
	CustomerRating   *int    `gorm:"column:customer_rating"`
	CustomerFeedback *string `gorm:"column:customer_feedback"`

	AssignedAt  *time.Time `gorm:"column:assigned_at"`
	AcceptedAt  *time.Time `gorm:"column:accepted_at"`
	PickedUpAt  *time.Time `gorm:"column:picked_up_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	FailedAt    *time.Time `gorm:"column:failed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
