package enums

import "fmt"

// DriverType maps to the driver_type enum in Postgres. The type decides how
// delivery fees are computed and whether activation windows apply.
type DriverType string

const (
	DriverTypePermanent DriverType = "permanent"
	DriverTypeTemporary DriverType = "temporary"
	DriverTypeOld       DriverType = "old"
)

var validDriverTypes = []DriverType{
	DriverTypePermanent,
	DriverTypeTemporary,
	DriverTypeOld,
}

// String implements fmt.Stringer.
func (d DriverType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DriverType.
func (d DriverType) IsValid() bool {
	for _, candidate := range validDriverTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDriverType converts raw input into a DriverType.
func ParseDriverType(value string) (DriverType, error) {
	for _, candidate := range validDriverTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid driver type %q", value)
}
