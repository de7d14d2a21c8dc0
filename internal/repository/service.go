package repository

import (
	"context"

	"facilita/internal/domain"
)

// ServiceRepository defines the persistence operations for services.
type ServiceRepository interface {
	// Create persists a new service.
	Create(ctx context.Context, svc *domain.Service) error

	// GetByID retrieves a service by ID.
	GetByID(ctx context.Context, id string) (*domain.Service, error)

	// Delete removes a service. Only used while the service is still
	// PENDING; accepted services are cancelled, never deleted.
	Delete(ctx context.Context, id string) error

	// ListByContractor retrieves all services created by a contractor,
	// most recent first.
	ListByContractor(ctx context.Context, contractorID string) ([]*domain.Service, error)

	// ListPending retrieves services waiting for a provider.
	ListPending(ctx context.Context) ([]*domain.Service, error)

	// GetActiveByProvider retrieves the service a provider currently holds
	// in an active (accepted but not yet confirmed/cancelled) state.
	// Returns nil if no active service exists.
	GetActiveByProvider(ctx context.Context, providerID string) (*domain.Service, error)

	// TransitionStatus writes svc's status, provider ref, cancel reason,
	// timestamps and bumped version, conditional on the stored row still
	// being in the expected status. Returns ErrStatusConflict when the
	// condition fails and ErrNotFound when the row does not exist.
	TransitionStatus(ctx context.Context, svc *domain.Service, expected domain.ServiceStatus) error
}
