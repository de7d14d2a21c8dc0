package postgres

import (
	"context"
	"database/sql"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// WaypointRepository is a PostgreSQL implementation of
// repository.WaypointRepository.
type WaypointRepository struct {
	q Querier
}

// NewWaypointRepository creates a new PostgreSQL waypoint repository.
func NewWaypointRepository(db *sql.DB) *WaypointRepository {
	return &WaypointRepository{q: db}
}

// NewWaypointRepositoryWithTx creates a waypoint repository using a
// transaction.
func NewWaypointRepositoryWithTx(tx *sql.Tx) *WaypointRepository {
	return &WaypointRepository{q: tx}
}

// Create persists a new waypoint, assigning the next position in the same
// statement. The unique (service_id, position) index rejects the loser of a
// concurrent append.
func (r *WaypointRepository) Create(ctx context.Context, wp *domain.Waypoint) error {
	query := `
		INSERT INTO waypoints (id, service_id, position, lat, lng, description, eta)
		VALUES (
			$1, $2,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM waypoints WHERE service_id = $2),
			$3, $4, $5, $6
		)
		RETURNING position
	`

	return r.q.QueryRowContext(ctx, query,
		wp.ID,
		wp.ServiceID,
		wp.Lat,
		wp.Lng,
		nullString(wp.Description),
		nullTime(wp.ETA),
	).Scan(&wp.Position)
}

// ListByService retrieves a service's waypoints ordered by position.
func (r *WaypointRepository) ListByService(ctx context.Context, serviceID string) ([]*domain.Waypoint, error) {
	query := `
		SELECT id, service_id, position, lat, lng, description, eta
		FROM waypoints
		WHERE service_id = $1
		ORDER BY position ASC
	`

	rows, err := r.q.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waypoints []*domain.Waypoint
	for rows.Next() {
		var wp domain.Waypoint
		var description sql.NullString
		var eta sql.NullTime

		if err := rows.Scan(
			&wp.ID,
			&wp.ServiceID,
			&wp.Position,
			&wp.Lat,
			&wp.Lng,
			&description,
			&eta,
		); err != nil {
			return nil, err
		}

		wp.Description = description.String
		if eta.Valid {
			wp.ETA = eta.Time
			wp.HasETA = true
		}

		waypoints = append(waypoints, &wp)
	}

	return waypoints, rows.Err()
}

// DeleteAt removes the waypoint at the given position.
func (r *WaypointRepository) DeleteAt(ctx context.Context, serviceID string, position int) error {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM waypoints WHERE service_id = $1 AND position = $2`,
		serviceID, position,
	)
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

// UpdatePosition moves a waypoint to a new position.
func (r *WaypointRepository) UpdatePosition(ctx context.Context, id string, position int) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE waypoints SET position = $1 WHERE id = $2`,
		position, id,
	)
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

// Ensure WaypointRepository implements repository.WaypointRepository.
var _ repository.WaypointRepository = (*WaypointRepository)(nil)
