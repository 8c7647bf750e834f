package services

import (
	"context"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
)

// restoreFunds gives back what a dying booking consumed: the exact credits
// debited at creation, and the coupon usage when no payment was ever
// approved. Must run inside the caller's transaction, after the booking row
// has been locked or claimed.
//
// The coupon boundary is strict: once cash has actually changed hands the
// usage row is permanent, including on later refunds. Administrative
// price-override codes are never tracked, so there is nothing to restore.
func restoreFunds(
	ctx context.Context,
	tx application.RepositorySet,
	booking *domain.Booking,
) (creditsRestored int64, couponRestored bool, err error) {
	creditsRestored, err = restoreCredits(ctx, tx, booking, booking.CreditAmount)
	if err != nil {
		return 0, false, err
	}

	if booking.CouponCode != nil && booking.CouponSnapshot != nil && booking.CouponSnapshot.Tracked() {
		approved, err := tx.Payments.HasApprovedForBooking(ctx, booking.ID)
		if err != nil {
			return creditsRestored, false, err
		}
		if !approved {
			couponRestored, err = tx.Coupons.RestoreByBooking(ctx, booking.ID)
			if err != nil {
				return creditsRestored, false, err
			}
		}
	}

	return creditsRestored, couponRestored, nil
}

// restoreCredits distributes amount back over the credits the booking
// consumed, clamped so no grant ever exceeds its original value. Used for
// cancellations (full amount) and refunds (refunded amount only).
func restoreCredits(
	ctx context.Context,
	tx application.RepositorySet,
	booking *domain.Booking,
	amount int64,
) (int64, error) {
	if amount <= 0 || len(booking.CreditsUsed) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(booking.CreditsUsed))
	for _, cu := range booking.CreditsUsed {
		ids = append(ids, cu.CreditID)
	}

	credits, err := tx.Credits.FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return 0, err
	}

	plan := domain.PlanRestore(credits, amount)
	if len(plan) == 0 {
		return 0, nil
	}
	if err := tx.Credits.ApplyRestores(ctx, plan); err != nil {
		return 0, err
	}

	var total int64
	for _, r := range plan {
		total += r.Amount
	}
	return total, nil
}
