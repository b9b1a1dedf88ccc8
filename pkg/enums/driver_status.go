package enums

import "fmt"

// DriverStatus tracks account approval state for a driver.
type DriverStatus string

const (
	DriverStatusPending   DriverStatus = "pending"
	DriverStatusActive    DriverStatus = "active"
	DriverStatusSuspended DriverStatus = "suspended"
)

var validDriverStatuses = []DriverStatus{
	DriverStatusPending,
	DriverStatusActive,
	DriverStatusSuspended,
}

// String implements fmt.Stringer.
func (d DriverStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DriverStatus.
func (d DriverStatus) IsValid() bool {
	for _, candidate := range validDriverStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDriverStatus converts raw input into a DriverStatus.
func ParseDriverStatus(value string) (DriverStatus, error) {
	for _, candidate := range validDriverStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid driver status %q", value)
}
