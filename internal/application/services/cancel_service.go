package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
)

// CancelService handles user-initiated cancellation of PENDING bookings.
type CancelService struct {
	store        application.Store
	orchestrator *PaymentOrchestrator
	audit        application.AuditSink
	logger       *slog.Logger
}

func NewCancelService(
	store application.Store,
	orchestrator *PaymentOrchestrator,
	audit application.AuditSink,
	logger *slog.Logger,
) *CancelService {
	return &CancelService{
		store:        store,
		orchestrator: orchestrator,
		audit:        audit,
		logger:       logger,
	}
}

type CancelResult struct {
	AlreadyCancelled bool
	CreditsRestored  int64
	CouponRestored   bool
}

// CancelPendingBooking cancels the caller's own PENDING booking, restoring
// credits and coupon usage since no payment was ever confirmed. Cancelling
// an already-cancelled booking reports AlreadyCancelled instead of failing.
// Any pending external charge is cancelled best-effort after the local
// transaction commits.
func (s *CancelService) CancelPendingBooking(ctx context.Context, userID, bookingID string) (*CancelResult, error) {
	result := &CancelResult{}

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx application.RepositorySet) error {
		booking, err := tx.Bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != userID {
			// Don't reveal other users' bookings.
			return domain.NewNotFoundError("booking", bookingID)
		}
		if booking.Status == domain.BookingCancelled {
			result.AlreadyCancelled = true
			return nil
		}
		// Self-service cancellation stops once the booking is paid;
		// confirmed bookings go through support and the refund flow.
		if booking.Status != domain.BookingPending {
			return domain.NewInvalidTransitionError(booking.Status, domain.BookingCancelled)
		}
		if err := booking.Cancel(domain.ReasonUserCancelled, domain.CancelSourceUser); err != nil {
			return err
		}

		restored, couponRestored, err := restoreFunds(ctx, tx, booking)
		if err != nil {
			return err
		}
		result.CreditsRestored = restored
		result.CouponRestored = couponRestored
		booking.UpdatedAt = time.Now()
		return tx.Bookings.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyCancelled {
		s.orchestrator.CancelExternalCharge(ctx, bookingID)

		if err := s.audit.Record(ctx, "booking.cancel", userID, bookingID, map[string]string{
			"source": string(domain.CancelSourceUser),
		}); err != nil {
			s.logger.Warn("audit record failed", "action", "booking.cancel", "error", err)
		}
	}

	return result, nil
}
