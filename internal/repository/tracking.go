package repository

import (
	"context"

	"facilita/internal/domain"
)

// TrackingRepository defines the persistence operations for the append-only
// tracking log.
type TrackingRepository interface {
	// Create appends a new tracking record.
	Create(ctx context.Context, rec *domain.TrackingRecord) error

	// ListByService retrieves all records for a service, most recent first.
	ListByService(ctx context.Context, serviceID string) ([]*domain.TrackingRecord, error)

	// GetLatest retrieves the most recent record for a service.
	// Returns nil if the service has no records yet.
	GetLatest(ctx context.Context, serviceID string) (*domain.TrackingRecord, error)
}

// RefusalRepository defines the persistence operations for refusals.
type RefusalRepository interface {
	// Create persists a new refusal. Returns ErrDuplicate if the provider
	// already refused this service.
	Create(ctx context.Context, ref *domain.Refusal) error

	// CountByService returns how many providers have refused a service.
	CountByService(ctx context.Context, serviceID string) (int, error)

	// GetByServiceAndProvider retrieves the refusal for a pair.
	// Returns nil if none exists.
	GetByServiceAndProvider(ctx context.Context, serviceID, providerID string) (*domain.Refusal, error)
}
