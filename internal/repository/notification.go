package repository

import (
	"context"

	"facilita/internal/domain"
)

// NotificationRepository defines the persistence operations for
// notifications.
type NotificationRepository interface {
	// Create persists a new notification.
	Create(ctx context.Context, n *domain.Notification) error

	// ListByUser retrieves a user's notifications, most recent first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error)
}
