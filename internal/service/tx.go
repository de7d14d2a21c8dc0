package service

import (
	"context"
	"database/sql"

	"facilita/internal/repository"
	"facilita/internal/repository/postgres"
)

// repos bundles the repositories a single operation acts on, so multi-write
// operations can swap in transaction-scoped instances.
type repos struct {
	services      repository.ServiceRepository
	tracking      repository.TrackingRepository
	refusals      repository.RefusalRepository
	payments      repository.PaymentRepository
	notifications repository.NotificationRepository
	waypoints     repository.WaypointRepository
}

// runInTx executes fn inside a database transaction, giving it
// transaction-scoped repositories. When no database handle is present
// (tests wire mock repositories instead) fn runs against the fallback
// repositories without transactional guarantees.
func runInTx(ctx context.Context, db *sql.DB, fallback repos, fn func(repos) error) error {
	if db == nil {
		return fn(fallback)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txRepos := repos{
		services:      postgres.NewServiceRepositoryWithTx(tx),
		tracking:      postgres.NewTrackingRepositoryWithTx(tx),
		refusals:      postgres.NewRefusalRepositoryWithTx(tx),
		payments:      postgres.NewPaymentRepositoryWithTx(tx),
		notifications: postgres.NewNotificationRepositoryWithTx(tx),
		waypoints:     postgres.NewWaypointRepositoryWithTx(tx),
	}

	if err := fn(txRepos); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
