package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/google/uuid"
)

// PaymentOrchestrator creates idempotent external charges and runs the
// compensating transaction when the gateway fails after the local booking
// transaction already committed.
type PaymentOrchestrator struct {
	store   application.Store
	gateway application.PaymentGateway
	logger  *slog.Logger
}

func NewPaymentOrchestrator(
	store application.Store,
	gateway application.PaymentGateway,
	logger *slog.Logger,
) *PaymentOrchestrator {
	return &PaymentOrchestrator{
		store:   store,
		gateway: gateway,
		logger:  logger,
	}
}

// CreateIdempotent opens a charge for the booking's cash remainder. An
// existing payment with the same idempotency key, or any active payment for
// the booking, is returned as-is without touching the gateway. This check
// runs before any gateway call and is the primary duplicate-charge defense.
func (o *PaymentOrchestrator) CreateIdempotent(
	ctx context.Context,
	booking *domain.Booking,
	method domain.PaymentMethod,
	customerEmail string,
) (*domain.Payment, error) {
	repos := o.store.Repos()
	key := domain.BuildIdempotencyKey("booking", booking.ID, method)

	existing, err := repos.Payments.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	active, err := repos.Payments.FindActiveByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}

	resp, err := o.gateway.CreateCharge(ctx, application.ChargeRequest{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		Amount:        booking.CashAmount,
		Method:        method,
		CustomerEmail: customerEmail,
		Description:   fmt.Sprintf("room %s %s", booking.RoomID, booking.StartTime.Format(time.RFC3339)),
	}, key)
	if err != nil {
		return nil, err
	}

	// The charge exists at the gateway from here on. Record it locally
	// before anything else can fail, so a webhook for it always finds a row.
	now := time.Now()
	payment := &domain.Payment{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		Amount:         booking.CashAmount,
		Status:         domain.PaymentPending,
		Method:         method,
		ExternalID:     &resp.ExternalID,
		ExternalURL:    &resp.CheckoutURL,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := repos.Payments.Create(ctx, payment); err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeDuplicateEntry) {
			// Lost the insert race. The winner used the same idempotency
			// key, so the gateway gave both calls the same charge; never
			// cancel it.
			winner, ferr := repos.Payments.FindByIdempotencyKey(ctx, key)
			if ferr == nil && winner != nil {
				return winner, nil
			}
			if ferr != nil {
				err = ferr
			}
		}
		// The charge has no local record; leaving it payable would strand
		// any webhook for it.
		o.releaseCharge(ctx, resp.ExternalID)
		return nil, err
	}

	if method == domain.MethodPix {
		code := resp.PixCode
		if code == "" {
			// Some provider versions omit the code from the create response.
			code, err = o.gateway.GetPixCode(ctx, resp.ExternalID)
			if err != nil {
				o.releaseCharge(ctx, resp.ExternalID)
				payment.Reject()
				payment.UpdatedAt = time.Now()
				if uerr := repos.Payments.Update(ctx, payment); uerr != nil {
					o.logger.Warn("failed to mark payment rejected after pix code fetch failure",
						"payment_id", payment.ID,
						"error", uerr,
					)
				}
				return nil, err
			}
		}
		payment.PixCode = &code
		payment.UpdatedAt = time.Now()
		if err := repos.Payments.Update(ctx, payment); err != nil {
			return nil, err
		}
	}

	return payment, nil
}

// releaseCharge best-effort cancels a gateway charge that cannot be used.
// Failure is logged; the gateway's own expiry is the fallback.
func (o *PaymentOrchestrator) releaseCharge(ctx context.Context, externalID string) {
	if err := o.gateway.CancelCharge(ctx, externalID); err != nil {
		o.logger.Warn("failed to release unused gateway charge",
			"external_id", externalID,
			"error", err,
		)
	}
}

// Compensate undoes a committed booking transaction after the gateway call
// failed: the booking is cancelled and the exact credits consumed are
// restored. A booking must never be left PENDING with a phantom debit and no
// way to pay. Compensation failure is escalated to manual reconciliation,
// never retried inside the request.
func (o *PaymentOrchestrator) Compensate(ctx context.Context, bookingID string) {
	err := o.store.WithTransaction(ctx, func(ctx context.Context, tx application.RepositorySet) error {
		booking, err := tx.Bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != domain.BookingPending {
			return nil
		}
		if err := booking.Cancel(domain.ReasonPaymentFailed, domain.CancelSourceSystem); err != nil {
			return err
		}
		if _, _, err := restoreFunds(ctx, tx, booking); err != nil {
			return err
		}
		return tx.Bookings.Update(ctx, booking)
	})
	if err != nil {
		o.logger.Error("payment compensation failed, manual reconciliation required",
			"booking_id", bookingID,
			"error", err,
		)
		return
	}
	o.logger.Info("booking compensated after gateway failure", "booking_id", bookingID)
}

// CancelExternalCharge is the best-effort cancel of a pending gateway charge.
// Failure never blocks the local cancellation; it is logged and left to the
// gateway's own expiry.
func (o *PaymentOrchestrator) CancelExternalCharge(ctx context.Context, bookingID string) {
	repos := o.store.Repos()

	payment, err := repos.Payments.FindActiveByBooking(ctx, bookingID)
	if err != nil || payment == nil {
		return
	}
	if payment.Status != domain.PaymentPending || payment.ExternalID == nil {
		return
	}

	if err := o.gateway.CancelCharge(ctx, *payment.ExternalID); err != nil {
		o.logger.Warn("failed to cancel external charge",
			"booking_id", bookingID,
			"external_id", *payment.ExternalID,
			"error", err,
		)
		return
	}

	payment.Reject()
	payment.UpdatedAt = time.Now()
	if err := repos.Payments.Update(ctx, payment); err != nil {
		o.logger.Warn("failed to mark cancelled payment rejected",
			"payment_id", payment.ID,
			"error", err,
		)
	}
}
