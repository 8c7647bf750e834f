package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `
	id, room_id, user_id, start_time, end_time, status, financial_status,
	gross_amount, discount_amount, net_amount, credit_amount, cash_amount,
	credits_used, coupon_code, coupon_snapshot,
	expires_at, cancel_reason, cancel_source, created_at, updated_at
`

type BookingRepository struct {
	q      Executor
	buffer time.Duration
}

// Create inserts the booking after re-checking the slot under a room lock.
// The cleanup buffer extends an existing booking's end only, which a range
// exclusion constraint cannot express, so the buffered conflict check runs
// here serialized per room; the exclusion constraint remains the durable
// backstop against true interval overlap.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	var roomID string
	err := r.q.QueryRow(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, b.RoomID).Scan(&roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("room", b.RoomID)
		}
		return fmt.Errorf("lock room for booking: %w", err)
	}

	available, err := r.IsAvailable(ctx, b.RoomID, b.StartTime, b.EndTime, r.buffer, "")
	if err != nil {
		return err
	}
	if !available {
		return domain.NewRoomUnavailableError(b.RoomID)
	}

	query := `
		INSERT INTO bookings (
			id, room_id, user_id, start_time, end_time,
			status, financial_status,
			gross_amount, discount_amount, net_amount, credit_amount, cash_amount,
			credits_used, coupon_code, coupon_snapshot,
			expires_at, cancel_reason, cancel_source, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	creditsUsed, err := json.Marshal(b.CreditsUsed)
	if err != nil {
		return fmt.Errorf("marshal credits_used: %w", err)
	}
	var snapshot []byte
	if b.CouponSnapshot != nil {
		snapshot, err = json.Marshal(b.CouponSnapshot)
		if err != nil {
			return fmt.Errorf("marshal coupon_snapshot: %w", err)
		}
	}

	_, err = r.q.Exec(ctx, query,
		b.ID, b.RoomID, b.UserID,
		b.StartTime, b.EndTime,
		b.Status, b.FinancialStatus,
		b.GrossAmount, b.DiscountAmount, b.NetAmount, b.CreditAmount, b.CashAmount,
		creditsUsed, b.CouponCode, snapshot,
		b.ExpiresAt, b.CancelReason, b.CancelSource,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if IsExclusionViolation(err) {
			return domain.NewRoomUnavailableError(b.RoomID)
		}
		if IsUniqueViolation(err) {
			return domain.NewDuplicateEntryError("booking")
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.q.QueryRow(ctx, query, id), id)
}

// FindByIDForUpdate retrieves a booking with a row-level lock so concurrent
// state changes on the same booking serialize.
func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return scanBooking(r.q.QueryRow(ctx, query, id), id)
}

func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, financial_status = $2,
			expires_at = $3, cancel_reason = $4, cancel_source = $5,
			updated_at = $6
		WHERE id = $7
	`

	tag, err := r.q.Exec(ctx, query,
		b.Status, b.FinancialStatus,
		b.ExpiresAt, b.CancelReason, b.CancelSource,
		b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("booking", b.ID)
	}
	return nil
}

// IsAvailable is the optimistic pre-check for a candidate interval. The
// buffer is added only to the existing booking's end, modeling turnaround
// time after it.
func (r *BookingRepository) IsAvailable(ctx context.Context, roomID string, start, end time.Time, buffer time.Duration, excludeBookingID string) (bool, error) {
	query := `
		SELECT NOT EXISTS (
			SELECT 1 FROM bookings
			WHERE room_id = $1
			  AND status IN ('PENDING', 'CONFIRMED')
			  AND ($4 = '' OR id <> $4)
			  AND start_time < $2
			  AND end_time > $3
		)
	`

	var available bool
	err := r.q.QueryRow(ctx, query, roomID, end, start.Add(-buffer), excludeBookingID).Scan(&available)
	if err != nil {
		return false, fmt.Errorf("availability check: %w", err)
	}
	return available, nil
}

func (r *BookingRepository) FindExpiredPending(ctx context.Context, now time.Time, fallbackCeiling time.Duration, limit int) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'PENDING'
		  AND (expires_at < $1 OR (expires_at IS NULL AND created_at < $2))
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, now, now.Add(-fallbackCeiling), limit)
	if err != nil {
		return nil, fmt.Errorf("query expired pending bookings: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Booking, error) {
		return collectBooking(row)
	})
}

// ClaimForCancellation conditionally cancels a PENDING booking. Returning
// false means another run (or a user cancel) got there first and the caller
// must not restore anything.
func (r *BookingRepository) ClaimForCancellation(ctx context.Context, id, reason string, source domain.CancelSource) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'CANCELLED', cancel_reason = $2, cancel_source = $3,
			expires_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`

	tag, err := r.q.Exec(ctx, query, id, reason, source)
	if err != nil {
		return false, fmt.Errorf("claim booking for cancellation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanBooking(row pgx.Row, id string) (*domain.Booking, error) {
	b, err := collectBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("booking", id)
		}
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}
	return b, nil
}

func collectBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var creditsUsed []byte
	var snapshot []byte

	err := row.Scan(
		&b.ID, &b.RoomID, &b.UserID, &b.StartTime, &b.EndTime,
		&b.Status, &b.FinancialStatus,
		&b.GrossAmount, &b.DiscountAmount, &b.NetAmount, &b.CreditAmount, &b.CashAmount,
		&creditsUsed, &b.CouponCode, &snapshot,
		&b.ExpiresAt, &b.CancelReason, &b.CancelSource,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(creditsUsed) > 0 {
		if err := json.Unmarshal(creditsUsed, &b.CreditsUsed); err != nil {
			return nil, fmt.Errorf("unmarshal credits_used: %w", err)
		}
	}
	if len(snapshot) > 0 {
		b.CouponSnapshot = &domain.Coupon{}
		if err := json.Unmarshal(snapshot, b.CouponSnapshot); err != nil {
			return nil, fmt.Errorf("unmarshal coupon_snapshot: %w", err)
		}
	}

	return &b, nil
}
