package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `
	id, booking_id, user_id, amount, status, method,
	external_id, external_url, pix_code, idempotency_key, created_at, updated_at
`

type PaymentRepository struct {
	q Executor
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, booking_id, user_id, amount, status, method,
			external_id, external_url, pix_code, idempotency_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.Exec(ctx, query,
		p.ID, p.BookingID, p.UserID, p.Amount, p.Status, p.Method,
		p.ExternalID, p.ExternalURL, p.PixCode, p.IdempotencyKey, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		// Covers both the idempotency key and the one-active-per-booking
		// partial index.
		if IsUniqueViolation(err) {
			return domain.NewDuplicateEntryError("payment")
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, external_id = $2, external_url = $3, pix_code = $4, updated_at = $5
		WHERE id = $6
	`

	tag, err := r.q.Exec(ctx, query, p.Status, p.ExternalID, p.ExternalURL, p.PixCode, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("payment", p.ID)
	}
	return nil
}

// FindByIdempotencyKey returns (nil, nil) when no payment carries the key.
func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = $1`
	return r.scanOptional(r.q.QueryRow(ctx, query, key))
}

// FindActiveByBooking returns the booking's single active payment, or
// (nil, nil) when there is none.
func (r *PaymentRepository) FindActiveByBooking(ctx context.Context, bookingID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1 AND status IN ('PENDING', 'APPROVED', 'IN_PROCESS')
	`
	return r.scanOptional(r.q.QueryRow(ctx, query, bookingID))
}

func (r *PaymentRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE external_id = $1`

	p, err := r.scanOptional(r.q.QueryRow(ctx, query, externalID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NewNotFoundError("payment", externalID)
	}
	return p, nil
}

func (r *PaymentRepository) HasApprovedForBooking(ctx context.Context, bookingID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE booking_id = $1 AND status = 'APPROVED')`

	var exists bool
	if err := r.q.QueryRow(ctx, query, bookingID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check approved payment: %w", err)
	}
	return exists, nil
}

func (r *PaymentRepository) scanOptional(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.BookingID, &p.UserID, &p.Amount, &p.Status, &p.Method,
		&p.ExternalID, &p.ExternalURL, &p.PixCode, &p.IdempotencyKey, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return &p, nil
}
