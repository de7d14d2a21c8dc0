package repository

import (
	"context"

	"facilita/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByExternalID retrieves a payment by its gateway-assigned id.
	// Returns nil if no payment exists with the given id.
	GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error)

	// ListOpenByService retrieves a service's payments still in PENDING or
	// PAID status.
	ListOpenByService(ctx context.Context, serviceID string) ([]*domain.Payment, error)

	// UpdateStatus updates the status of a payment.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error
}
