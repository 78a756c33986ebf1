package enums

import "slices"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeQuoteReceived      NotificationType = "quote_received"
	NotificationTypeQuoteAccepted      NotificationType = "quote_accepted"
	NotificationTypeQuoteRejected      NotificationType = "quote_rejected"
	NotificationTypeRequestExpired     NotificationType = "request_expired"
	NotificationTypeOrderCreated       NotificationType = "order_created"
	NotificationTypeOrderStatusChanged NotificationType = "order_status_changed"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeQuoteReceived,
	NotificationTypeQuoteAccepted,
	NotificationTypeQuoteRejected,
	NotificationTypeRequestExpired,
	NotificationTypeOrderCreated,
	NotificationTypeOrderStatusChanged,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parse("notification type", validNotificationTypes, value)
}
