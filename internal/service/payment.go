package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// PaymentService maintains the local payment rows tied to services. The
// gateway itself is an external collaborator; this service only records
// what the gateway reports.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	serviceRepo repository.ServiceRepository
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo repository.PaymentRepository, serviceRepo repository.ServiceRepository) *PaymentService {
	return &PaymentService{paymentRepo: paymentRepo, serviceRepo: serviceRepo}
}

// ReconcileRequest carries a gateway status report. ExternalID is the
// gateway-assigned payment id and the idempotency key: replays of the same
// report are no-ops.
type ReconcileRequest struct {
	ExternalID string
	ServiceID  string
	Amount     float64
	Status     domain.PaymentStatus
}

// Reconcile records an asynchronous payment status report. A payment row is
// created on first sight of an external id and only its status is updated on
// replays, so a replayed PAID report cannot double-credit.
func (s *PaymentService) Reconcile(ctx context.Context, req ReconcileRequest) (*domain.Payment, error) {
	if req.ExternalID == "" {
		return nil, ErrInvalidExternalID
	}
	if req.Amount < 0 {
		return nil, ErrInvalidAmount
	}

	existing, err := s.paymentRepo.GetByExternalID(ctx, req.ExternalID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Status == req.Status {
			return existing, nil
		}
		// Terminal local states win over late gateway reports.
		if existing.Status == domain.PaymentStatusCancelled {
			return existing, nil
		}
		if err := s.paymentRepo.UpdateStatus(ctx, existing.ID, req.Status); err != nil {
			return nil, err
		}
		existing.Status = req.Status
		return existing, nil
	}

	if req.ServiceID == "" {
		return nil, ErrInvalidServiceID
	}

	// First report for this external id; make sure the service exists.
	if _, err := s.serviceRepo.GetByID(ctx, req.ServiceID); err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:         uuid.New().String(),
		ServiceID:  req.ServiceID,
		Amount:     req.Amount,
		Status:     req.Status,
		ExternalID: req.ExternalID,
		CreatedAt:  time.Now(),
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	if id == "" {
		return nil, ErrInvalidPaymentID
	}
	return s.paymentRepo.GetByID(ctx, id)
}
