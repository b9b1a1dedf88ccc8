package enums

import "fmt"

// EarningStatus tracks payout state for an earnings row.
type EarningStatus string

const (
	EarningStatusPending   EarningStatus = "pending"
	EarningStatusPaid      EarningStatus = "paid"
	EarningStatusCancelled EarningStatus = "cancelled"
)

var validEarningStatuses = []EarningStatus{
	EarningStatusPending,
	EarningStatusPaid,
	EarningStatusCancelled,
}

// String implements fmt.Stringer.
func (e EarningStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EarningStatus.
func (e EarningStatus) IsValid() bool {
	for _, candidate := range validEarningStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEarningStatus converts raw input into an EarningStatus.
func ParseEarningStatus(value string) (EarningStatus, error) {
	for _, candidate := range validEarningStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning status %q", value)
}
