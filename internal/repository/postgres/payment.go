package postgres

import (
	"context"
	"database/sql"
	"errors"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, service_id, amount, status, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.ServiceID,
		payment.Amount,
		payment.Status,
		nullString(payment.ExternalID),
		payment.CreatedAt,
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `
		SELECT id, service_id, amount, status, external_id, created_at
		FROM payments WHERE id = $1
	`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// GetByExternalID retrieves a payment by its gateway-assigned id.
// Returns nil if no payment exists with the given id.
func (r *PaymentRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	query := `
		SELECT id, service_id, amount, status, external_id, created_at
		FROM payments WHERE external_id = $1
	`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return payment, nil
}

// ListOpenByService retrieves a service's payments still in PENDING or PAID
// status.
func (r *PaymentRepository) ListOpenByService(ctx context.Context, serviceID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, service_id, amount, status, external_id, created_at
		FROM payments
		WHERE service_id = $1 AND status IN ($2, $3)
	`

	rows, err := r.q.QueryContext(ctx, query, serviceID,
		domain.PaymentStatusPending, domain.PaymentStatusPaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// UpdateStatus updates the status of a payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	query := `UPDATE payments SET status = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var externalID sql.NullString

	err := row.Scan(
		&payment.ID,
		&payment.ServiceID,
		&payment.Amount,
		&payment.Status,
		&externalID,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.ExternalID = externalID.String

	return &payment, nil
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)
