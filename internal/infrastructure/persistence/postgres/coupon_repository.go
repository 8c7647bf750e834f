package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CouponRepository struct {
	q Executor
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT code, discount_percent, min_amount, valid_from, valid_until, admin_override
		FROM coupons WHERE code = $1
	`

	var c domain.Coupon
	err := r.q.QueryRow(ctx, query, code).Scan(
		&c.Code, &c.DiscountPercent, &c.MinAmount,
		&c.ValidFrom, &c.ValidUntil, &c.AdminOverride,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("coupon", code)
		}
		return nil, fmt.Errorf("failed to scan coupon: %w", err)
	}
	return &c, nil
}

// HasUsage reports whether a redemption row already exists for the tuple.
func (r *CouponRepository) HasUsage(ctx context.Context, userID, code string, usageContext domain.UsageContext) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM coupon_usages
			WHERE user_id = $1 AND code = $2 AND context = $3
		)
	`

	var exists bool
	if err := r.q.QueryRow(ctx, query, userID, code, usageContext).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check coupon usage: %w", err)
	}
	return exists, nil
}

// RecordUsage inserts a redemption row. The unique constraint on
// (user_id, code, context) is what makes redemption exactly-once: the loser
// of a concurrent race gets alreadyUsed, not an opaque driver error.
func (r *CouponRepository) RecordUsage(ctx context.Context, usage domain.CouponUsage) (bool, error) {
	query := `
		INSERT INTO coupon_usages (id, user_id, code, context, booking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.Exec(ctx, query,
		usage.ID, usage.UserID, usage.Code, usage.Context, usage.BookingID, usage.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to record coupon usage: %w", err)
	}
	return false, nil
}

// RestoreByBooking deletes the usage row so the code may be redeemed again.
func (r *CouponRepository) RestoreByBooking(ctx context.Context, bookingID string) (bool, error) {
	query := `DELETE FROM coupon_usages WHERE booking_id = $1 AND context = 'BOOKING'`

	tag, err := r.q.Exec(ctx, query, bookingID)
	if err != nil {
		return false, fmt.Errorf("failed to restore coupon usage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
