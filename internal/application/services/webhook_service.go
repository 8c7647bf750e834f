package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
)

// WebhookService applies gateway callbacks to payments and bookings.
// Processing is keyed on the external event id so duplicated deliveries are
// no-ops, and events may arrive out of order without corrupting state.
type WebhookService struct {
	store    application.Store
	gateway  application.PaymentGateway
	notifier application.NotificationSender
	audit    application.AuditSink
	logger   *slog.Logger
}

func NewWebhookService(
	store application.Store,
	gateway application.PaymentGateway,
	notifier application.NotificationSender,
	audit application.AuditSink,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
	}
}

// ApplyPaymentWebhook processes one gateway event. Returns nil (ack) on
// duplicates and on protected-downgrade attempts, which are logged and
// audited instead of applied.
func (s *WebhookService) ApplyPaymentWebhook(ctx context.Context, externalEventID, paymentExternalID, eventType string) error {
	// Refund events carry no amount; the gateway is the source of truth for
	// how much came back. Queried before the transaction, never inside it.
	var charge *application.ChargeStatus
	if eventType == domain.EventPaymentRefunded {
		var err error
		charge, err = s.gateway.GetCharge(ctx, paymentExternalID)
		if err != nil {
			return err
		}
	}

	var confirmed *domain.Booking
	var downgradeAttempt *domain.Booking

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx application.RepositorySet) error {
		alreadyProcessed, err := tx.WebhookEvents.Record(ctx, externalEventID, eventType)
		if err != nil {
			return err
		}
		if alreadyProcessed {
			return nil
		}

		payment, err := tx.Payments.FindByExternalID(ctx, paymentExternalID)
		if err != nil {
			return err
		}

		switch eventType {
		case domain.EventPaymentApproved:
			confirmed, downgradeAttempt, err = s.applyApproved(ctx, tx, payment)
			return err
		case domain.EventPaymentRejected:
			payment.Reject()
			payment.UpdatedAt = time.Now()
			// The booking stays PENDING; expiry cleanup reclaims it.
			return tx.Payments.Update(ctx, payment)
		case domain.EventPaymentRefunded:
			return s.applyRefund(ctx, tx, payment, charge)
		default:
			s.logger.Warn("ignoring unknown webhook event type",
				"event_type", eventType,
				"external_event_id", externalEventID,
			)
			return nil
		}
	})
	if err != nil {
		return err
	}

	if confirmed != nil {
		s.sendConfirmation(ctx, confirmed)
	}
	if downgradeAttempt != nil {
		s.logger.Warn("webhook attempted to move a terminal booking, rejected",
			"booking_id", downgradeAttempt.ID,
			"status", downgradeAttempt.Status,
			"event_type", eventType,
		)
		if err := s.audit.Record(ctx, "webhook.downgrade_rejected", "gateway", downgradeAttempt.ID, map[string]string{
			"event_type": eventType,
			"status":     string(downgradeAttempt.Status),
		}); err != nil {
			s.logger.Warn("audit record failed", "action", "webhook.downgrade_rejected", "error", err)
		}
	}

	return nil
}

// applyApproved settles the payment and confirms the booking. Confirming an
// already-confirmed booking is a no-op; confirming a cancelled or refunded
// one is a protected-downgrade attempt, rejected without touching the row.
// A payment already REJECTED (cancelled charge, refund) stays REJECTED: the
// confirm is stale and must not re-open the active-payment slot.
func (s *WebhookService) applyApproved(
	ctx context.Context,
	tx application.RepositorySet,
	payment *domain.Payment,
) (confirmed, downgradeAttempt *domain.Booking, err error) {
	if payment.Status != domain.PaymentRejected {
		payment.Approve()
		payment.UpdatedAt = time.Now()
		if err := tx.Payments.Update(ctx, payment); err != nil {
			return nil, nil, err
		}
	}

	booking, err := tx.Bookings.FindByIDForUpdate(ctx, payment.BookingID)
	if err != nil {
		return nil, nil, err
	}

	switch booking.Status {
	case domain.BookingPending:
		if payment.Status == domain.PaymentRejected {
			// The charge died before this confirm arrived; the booking
			// stays PENDING for expiry cleanup rather than confirming
			// against a dead payment.
			s.logger.Warn("stale approval for rejected payment, ignoring",
				"payment_id", payment.ID,
				"booking_id", booking.ID,
			)
			return nil, nil, nil
		}
		if err := booking.Confirm(); err != nil {
			return nil, nil, err
		}
		booking.UpdatedAt = time.Now()
		if err := tx.Bookings.Update(ctx, booking); err != nil {
			return nil, nil, err
		}
		return booking, nil, nil
	case domain.BookingConfirmed:
		return nil, nil, nil
	default:
		return nil, booking, nil
	}
}

// applyRefund restores credits for the refunded amount. A full cash refund
// restores the booking's consumed credits entirely and flips it to REFUNDED;
// a partial refund restores only the refunded amount and leaves the booking
// CONFIRMED. A refund landing before the confirm event cancels the still
// PENDING booking, and the late confirm is then rejected as a downgrade.
func (s *WebhookService) applyRefund(
	ctx context.Context,
	tx application.RepositorySet,
	payment *domain.Payment,
	charge *application.ChargeStatus,
) error {
	if charge == nil || charge.RefundedAmount <= 0 {
		return nil
	}

	booking, err := tx.Bookings.FindByIDForUpdate(ctx, payment.BookingID)
	if err != nil {
		return err
	}
	if booking.IsTerminal() {
		s.logger.Warn("refund event for a terminal booking, skipping",
			"booking_id", booking.ID,
			"status", booking.Status,
		)
		return nil
	}

	full := charge.RefundedAmount >= payment.Amount
	restoreAmount := charge.RefundedAmount
	if full {
		// Full refund also releases the credit-funded part.
		restoreAmount = booking.CreditAmount
		if restoreAmount < charge.RefundedAmount {
			restoreAmount = charge.RefundedAmount
		}
	}
	if _, err := restoreCredits(ctx, tx, booking, restoreAmount); err != nil {
		return err
	}

	if full {
		switch booking.Status {
		case domain.BookingConfirmed:
			if err := booking.MarkRefunded(); err != nil {
				return err
			}
		case domain.BookingPending:
			if err := booking.Cancel(domain.ReasonRefunded, domain.CancelSourceGateway); err != nil {
				return err
			}
		}
		payment.Reject()
		payment.UpdatedAt = time.Now()
		if err := tx.Payments.Update(ctx, payment); err != nil {
			return err
		}
		booking.UpdatedAt = time.Now()
		return tx.Bookings.Update(ctx, booking)
	}

	return nil
}

func (s *WebhookService) sendConfirmation(ctx context.Context, booking *domain.Booking) {
	err := s.notifier.SendBookingConfirmation(ctx, application.BookingConfirmation{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		RoomID:    booking.RoomID,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
	})
	if err != nil {
		s.logger.Warn("booking confirmation notification failed",
			"booking_id", booking.ID,
			"error", err,
		)
	}
}
