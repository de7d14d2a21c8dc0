package repository

import (
	"context"

	"facilita/internal/domain"
)

// WaypointRepository defines the persistence operations for waypoints.
type WaypointRepository interface {
	// Create persists a new waypoint at the end of the service's route.
	// The next contiguous position is assigned atomically with the insert
	// and written back to wp.Position.
	Create(ctx context.Context, wp *domain.Waypoint) error

	// ListByService retrieves a service's waypoints ordered by position.
	ListByService(ctx context.Context, serviceID string) ([]*domain.Waypoint, error)

	// DeleteAt removes the waypoint at the given position.
	DeleteAt(ctx context.Context, serviceID string, position int) error

	// UpdatePosition moves a waypoint to a new position.
	UpdatePosition(ctx context.Context, id string, position int) error
}
