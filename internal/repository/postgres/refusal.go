package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// RefusalRepository is a PostgreSQL implementation of
// repository.RefusalRepository.
type RefusalRepository struct {
	q Querier
}

// NewRefusalRepository creates a new PostgreSQL refusal repository.
func NewRefusalRepository(db *sql.DB) *RefusalRepository {
	return &RefusalRepository{q: db}
}

// NewRefusalRepositoryWithTx creates a refusal repository using a
// transaction.
func NewRefusalRepositoryWithTx(tx *sql.Tx) *RefusalRepository {
	return &RefusalRepository{q: tx}
}

// Create persists a new refusal. The unique index on
// (service_id, provider_id) enforces one refusal per pair.
func (r *RefusalRepository) Create(ctx context.Context, ref *domain.Refusal) error {
	query := `
		INSERT INTO refusals (id, service_id, provider_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.ExecContext(ctx, query,
		ref.ID,
		ref.ServiceID,
		ref.ProviderID,
		nullString(ref.Reason),
		ref.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

// CountByService returns how many providers have refused a service.
func (r *RefusalRepository) CountByService(ctx context.Context, serviceID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refusals WHERE service_id = $1`, serviceID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetByServiceAndProvider retrieves the refusal for a pair.
// Returns nil if none exists.
func (r *RefusalRepository) GetByServiceAndProvider(ctx context.Context, serviceID, providerID string) (*domain.Refusal, error) {
	query := `
		SELECT id, service_id, provider_id, reason, created_at
		FROM refusals
		WHERE service_id = $1 AND provider_id = $2
	`

	var ref domain.Refusal
	var reason sql.NullString

	err := r.q.QueryRowContext(ctx, query, serviceID, providerID).Scan(
		&ref.ID,
		&ref.ServiceID,
		&ref.ProviderID,
		&reason,
		&ref.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	ref.Reason = reason.String

	return &ref, nil
}

// Ensure RefusalRepository implements repository.RefusalRepository.
var _ repository.RefusalRepository = (*RefusalRepository)(nil)
