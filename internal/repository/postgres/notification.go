package postgres

import (
	"context"
	"database/sql"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// NotificationRepository is a PostgreSQL implementation of
// repository.NotificationRepository.
type NotificationRepository struct {
	q Querier
}

// NewNotificationRepository creates a new PostgreSQL notification repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{q: db}
}

// NewNotificationRepositoryWithTx creates a notification repository using a
// transaction.
func NewNotificationRepositoryWithTx(tx *sql.Tx) *NotificationRepository {
	return &NotificationRepository{q: tx}
}

// Create persists a new notification.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, service_id, type, title, body, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		nullString(n.ServiceID),
		n.Type,
		n.Title,
		n.Body,
		nullTime(n.ReadAt),
		n.CreatedAt,
	)

	return err
}

// ListByUser retrieves a user's notifications, most recent first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, service_id, type, title, body, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var serviceID sql.NullString
		var readAt sql.NullTime

		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&serviceID,
			&n.Type,
			&n.Title,
			&n.Body,
			&readAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}

		n.ServiceID = serviceID.String
		if readAt.Valid {
			n.ReadAt = readAt.Time
		}

		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// Ensure NotificationRepository implements repository.NotificationRepository.
var _ repository.NotificationRepository = (*NotificationRepository)(nil)
