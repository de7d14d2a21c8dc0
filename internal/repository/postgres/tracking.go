package postgres

import (
	"context"
	"database/sql"
	"errors"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// TrackingRepository is a PostgreSQL implementation of
// repository.TrackingRepository.
type TrackingRepository struct {
	q Querier
}

// NewTrackingRepository creates a new PostgreSQL tracking repository.
func NewTrackingRepository(db *sql.DB) *TrackingRepository {
	return &TrackingRepository{q: db}
}

// NewTrackingRepositoryWithTx creates a tracking repository using a
// transaction.
func NewTrackingRepositoryWithTx(tx *sql.Tx) *TrackingRepository {
	return &TrackingRepository{q: tx}
}

// Create appends a new tracking record.
func (r *TrackingRepository) Create(ctx context.Context, rec *domain.TrackingRecord) error {
	query := `
		INSERT INTO tracking_records (id, service_id, status, lat, lng, address, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		rec.ID,
		rec.ServiceID,
		rec.Status,
		nullFloat(rec.Lat, rec.HasLocation),
		nullFloat(rec.Lng, rec.HasLocation),
		nullString(rec.Address),
		nullString(rec.Note),
		rec.CreatedAt,
	)

	return err
}

// ListByService retrieves all records for a service, most recent first.
func (r *TrackingRepository) ListByService(ctx context.Context, serviceID string) ([]*domain.TrackingRecord, error) {
	query := `
		SELECT id, service_id, status, lat, lng, address, note, created_at
		FROM tracking_records
		WHERE service_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.TrackingRecord
	for rows.Next() {
		rec, err := scanTrackingRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetLatest retrieves the most recent record for a service.
// Returns nil if the service has no records yet.
func (r *TrackingRepository) GetLatest(ctx context.Context, serviceID string) (*domain.TrackingRecord, error) {
	query := `
		SELECT id, service_id, status, lat, lng, address, note, created_at
		FROM tracking_records
		WHERE service_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	rec, err := scanTrackingRecord(r.q.QueryRowContext(ctx, query, serviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return rec, nil
}

func scanTrackingRecord(row rowScanner) (*domain.TrackingRecord, error) {
	var rec domain.TrackingRecord
	var lat, lng sql.NullFloat64
	var address, note sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.ServiceID,
		&rec.Status,
		&lat,
		&lng,
		&address,
		&note,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		rec.Lat = lat.Float64
		rec.Lng = lng.Float64
		rec.HasLocation = true
	}
	rec.Address = address.String
	rec.Note = note.String

	return &rec, nil
}

// Ensure TrackingRepository implements repository.TrackingRepository.
var _ repository.TrackingRepository = (*TrackingRepository)(nil)
