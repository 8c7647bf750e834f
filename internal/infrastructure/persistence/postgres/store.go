package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
)

// Store wires the pgx-backed repositories into the application's Store port.
// Repos() shares the pool; WithTransaction hands the callback a repository
// set bound to a single transaction.
type Store struct {
	db            *DB
	cleanupBuffer time.Duration
}

func NewStore(db *DB, cleanupBuffer time.Duration) *Store {
	return &Store{db: db, cleanupBuffer: cleanupBuffer}
}

func (s *Store) Repos() application.RepositorySet {
	return s.repositorySet(s.db.Pool)
}

// WithTransaction executes fn within a database transaction. Any error from
// fn rolls everything back atomically.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos application.RepositorySet) error) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, s.repositorySet(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Store) repositorySet(q Executor) application.RepositorySet {
	return application.RepositorySet{
		Bookings:      &BookingRepository{q: q, buffer: s.cleanupBuffer},
		Credits:       &CreditRepository{q: q},
		Coupons:       &CouponRepository{q: q},
		Payments:      &PaymentRepository{q: q},
		WebhookEvents: &WebhookEventRepository{q: q},
		Rooms:         &RoomRepository{q: q},
	}
}
