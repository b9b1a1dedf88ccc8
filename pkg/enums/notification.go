package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeDeliveryRequest   NotificationType = "delivery_request"
	NotificationTypeDeliveryCompleted NotificationType = "delivery_completed"
	NotificationTypeDeliveryCancelled NotificationType = "delivery_cancelled"
	NotificationTypeEarnings          NotificationType = "earnings"
	NotificationTypeSystem            NotificationType = "system"
	NotificationTypeWarning           NotificationType = "warning"
	NotificationTypeActivation        NotificationType = "activation"
	NotificationTypeRating            NotificationType = "rating"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeDeliveryRequest,
	NotificationTypeDeliveryCompleted,
	NotificationTypeDeliveryCancelled,
	NotificationTypeEarnings,
	NotificationTypeSystem,
	NotificationTypeWarning,
	NotificationTypeActivation,
	NotificationTypeRating,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
