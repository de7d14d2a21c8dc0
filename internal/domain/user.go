package domain

import "time"

// User represents an account in the system, either a contractor or a
// provider.
type User struct {
	ID        string
	Name      string
	Phone     string
	Role      Role
	CreatedAt time.Time
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationServiceAccepted  NotificationType = "SERVICE_ACCEPTED"
	NotificationServiceCancelled NotificationType = "SERVICE_CANCELLED"
	NotificationServiceFinished  NotificationType = "SERVICE_FINISHED"
	NotificationServiceConfirmed NotificationType = "SERVICE_CONFIRMED"
)

// Notification is a persisted message for a user about a service.
type Notification struct {
	ID        string
	UserID    string
	ServiceID string
	Type      NotificationType
	Title     string
	Body      string
	ReadAt    time.Time
	CreatedAt time.Time
}
