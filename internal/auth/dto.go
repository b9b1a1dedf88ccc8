package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
)

// RegisterRequest captures the driver onboarding payload.
type RegisterRequest struct {
	FirstName   string  `json:"first_name" validate:"required,max=100"`
	LastName    string  `json:"last_name" validate:"required,max=100"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	VehicleType *string `json:"vehicle_type,omitempty" validate:"omitempty,max=50"`
	VehicleReg  *string `json:"vehicle_registration,omitempty" validate:"omitempty,max=20"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// PasswordResetRequest asks for a reset token to be issued for the email.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest redeems a reset token with the new password.
type PasswordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// DriverDTO is the driver shape returned by auth and profile endpoints.
type DriverDTO struct {
	ID              uuid.UUID            `json:"id"`
	Email           string               `json:"email"`
	FirstName       string               `json:"first_name"`
	LastName        string               `json:"last_name"`
	Phone           *string              `json:"phone,omitempty"`
	DriverType      enums.DriverType     `json:"driver_type"`
	Status          enums.DriverStatus   `json:"status"`
	OnlineStatus    enums.PresenceStatus `json:"online_status"`
	VehicleType     *string              `json:"vehicle_type,omitempty"`
	VehicleReg      *string              `json:"vehicle_registration,omitempty"`
	LicenseNumber   *string              `json:"license_number,omitempty"`
	ProfileImageURL *string              `json:"profile_image_url,omitempty"`
	TotalDeliveries int                  `json:"total_deliveries"`
	Rating          *string              `json:"rating,omitempty"`
	LastLoginAt     *time.Time           `json:"last_login_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// FromModel maps a driver row into its API shape.
func FromModel(driver *models.Driver) *DriverDTO {
	if driver == nil {
		return nil
	}
	dto := &DriverDTO{
		ID:              driver.ID,
		Email:           driver.Email,
		FirstName:       driver.FirstName,
		LastName:        driver.LastName,
		Phone:           driver.Phone,
		DriverType:      driver.DriverType,
		Status:          driver.Status,
		OnlineStatus:    driver.OnlineStatus,
		VehicleType:     driver.VehicleType,
		VehicleReg:      driver.VehicleReg,
		LicenseNumber:   driver.LicenseNumber,
		ProfileImageURL: driver.ProfileImageURL,
		TotalDeliveries: driver.TotalDeliveries,
		LastLoginAt:     driver.LastLoginAt,
		CreatedAt:       driver.CreatedAt,
	}
	if driver.Rating != nil {
		rating := driver.Rating.StringFixed(2)
		dto.Rating = &rating
	}
	return dto
}

// LoginResponse contains the token pair and driver produced by a successful login.
type LoginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	Driver       *DriverDTO `json:"driver"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
