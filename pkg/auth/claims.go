package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	DriverID   uuid.UUID
	DriverType enums.DriverType
	Status     enums.DriverStatus
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to driver clients.
type AccessTokenClaims struct {
	DriverID   uuid.UUID          `json:"driver_id"`
	DriverType enums.DriverType   `json:"driver_type"`
	Status     enums.DriverStatus `json:"status"`
	jwt.RegisteredClaims
}
