package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// ServiceRepository is a PostgreSQL implementation of
// repository.ServiceRepository.
type ServiceRepository struct {
	q Querier
}

// NewServiceRepository creates a new PostgreSQL service repository.
func NewServiceRepository(db *sql.DB) *ServiceRepository {
	return &ServiceRepository{q: db}
}

// NewServiceRepositoryWithTx creates a service repository using a transaction.
func NewServiceRepositoryWithTx(tx *sql.Tx) *ServiceRepository {
	return &ServiceRepository{q: tx}
}

const serviceColumns = `
	id, contractor_id, provider_id, category_id, description, value, status,
	lat, lng, address, cancel_reason, version,
	requested_at, started_at, completed_at, confirmed_at
`

// Create persists a new service.
func (r *ServiceRepository) Create(ctx context.Context, svc *domain.Service) error {
	query := `
		INSERT INTO services (id, contractor_id, provider_id, category_id, description, value, status,
			lat, lng, address, cancel_reason, version, requested_at, started_at, completed_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.q.ExecContext(ctx, query,
		svc.ID,
		svc.ContractorID,
		nullString(svc.ProviderID),
		nullString(svc.CategoryID),
		svc.Description,
		nullFloat(svc.Value, svc.HasValue),
		svc.Status,
		nullFloat(svc.Lat, svc.HasLocation),
		nullFloat(svc.Lng, svc.HasLocation),
		nullString(svc.Address),
		nullString(svc.CancelReason),
		svc.Version,
		svc.RequestedAt,
		nullTime(svc.StartedAt),
		nullTime(svc.CompletedAt),
		nullTime(svc.ConfirmedAt),
	)

	return err
}

// GetByID retrieves a service by ID.
func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

	svc, err := scanService(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return svc, nil
}

// Delete removes a service.
func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
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

// ListByContractor retrieves all services created by a contractor.
func (r *ServiceRepository) ListByContractor(ctx context.Context, contractorID string) ([]*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE contractor_id = $1 ORDER BY requested_at DESC`

	rows, err := r.q.QueryContext(ctx, query, contractorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectServices(rows)
}

// ListPending retrieves services waiting for a provider.
func (r *ServiceRepository) ListPending(ctx context.Context) ([]*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE status = $1 ORDER BY requested_at ASC`

	rows, err := r.q.QueryContext(ctx, query, domain.ServiceStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectServices(rows)
}

// GetActiveByProvider retrieves the service a provider currently holds in an
// active state. Returns nil if no active service exists.
func (r *ServiceRepository) GetActiveByProvider(ctx context.Context, providerID string) (*domain.Service, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE provider_id = $1 AND status IN ($2, $3, $4, $5, $6)
		LIMIT 1
	`

	svc, err := scanService(r.q.QueryRowContext(ctx, query, providerID,
		domain.ServiceStatusInProgress,
		domain.ServiceStatusEnRoute,
		domain.ServiceStatusArrived,
		domain.ServiceStatusStarted,
		domain.ServiceStatusFinished,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return svc, nil
}

// TransitionStatus performs a conditional status update. The WHERE clause on
// the expected status is the compare-and-set guard that serializes racing
// transitions; the loser gets ErrStatusConflict.
func (r *ServiceRepository) TransitionStatus(ctx context.Context, svc *domain.Service, expected domain.ServiceStatus) error {
	query := `
		UPDATE services
		SET provider_id = $1, status = $2, cancel_reason = $3,
			started_at = $4, completed_at = $5, confirmed_at = $6,
			version = version + 1
		WHERE id = $7 AND status = $8
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(svc.ProviderID),
		svc.Status,
		nullString(svc.CancelReason),
		nullTime(svc.StartedAt),
		nullTime(svc.CompletedAt),
		nullTime(svc.ConfirmedAt),
		svc.ID,
		expected,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM services WHERE id = $1)`, svc.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrStatusConflict
	}

	svc.Version++
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*domain.Service, error) {
	var svc domain.Service
	var providerID, categoryID, address, cancelReason sql.NullString
	var value, lat, lng sql.NullFloat64
	var startedAt, completedAt, confirmedAt sql.NullTime

	err := row.Scan(
		&svc.ID,
		&svc.ContractorID,
		&providerID,
		&categoryID,
		&svc.Description,
		&value,
		&svc.Status,
		&lat,
		&lng,
		&address,
		&cancelReason,
		&svc.Version,
		&svc.RequestedAt,
		&startedAt,
		&completedAt,
		&confirmedAt,
	)
	if err != nil {
		return nil, err
	}

	svc.ProviderID = providerID.String
	svc.CategoryID = categoryID.String
	svc.Address = address.String
	svc.CancelReason = cancelReason.String
	if value.Valid {
		svc.Value = value.Float64
		svc.HasValue = true
	}
	if lat.Valid && lng.Valid {
		svc.Lat = lat.Float64
		svc.Lng = lng.Float64
		svc.HasLocation = true
	}
	if startedAt.Valid {
		svc.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		svc.CompletedAt = completedAt.Time
	}
	if confirmedAt.Valid {
		svc.ConfirmedAt = confirmedAt.Time
	}

	return &svc, nil
}

func collectServices(rows *sql.Rows) ([]*domain.Service, error) {
	var services []*domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f float64, valid bool) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: valid}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Ensure ServiceRepository implements repository.ServiceRepository.
var _ repository.ServiceRepository = (*ServiceRepository)(nil)
