package enums

import "fmt"

// EventType names the domain events published over Pub/Sub.
type EventType string

const (
	EventDeliveryAssigned      EventType = "delivery_assigned"
	EventDeliveryStatusChanged EventType = "delivery_status_changed"
	EventDeliveryCompleted     EventType = "delivery_completed"
	EventDeliveryCancelled     EventType = "delivery_cancelled"
	EventEarningRecorded       EventType = "earning_recorded"
	EventActivationChanged     EventType = "activation_changed"
	EventDriverRated           EventType = "driver_rated"
	EventPasswordResetRequest  EventType = "password_reset_requested"
)

var validEventTypes = []EventType{
	EventDeliveryAssigned,
	EventDeliveryStatusChanged,
	EventDeliveryCompleted,
	EventDeliveryCancelled,
	EventEarningRecorded,
	EventActivationChanged,
	EventDriverRated,
	EventPasswordResetRequest,
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
