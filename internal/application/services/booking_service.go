package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/google/uuid"
)

// BookingConfig carries the business knobs of booking creation.
type BookingConfig struct {
	// CleanupBuffer is added to an existing booking's end when checking
	// overlap, modeling room turnaround time.
	CleanupBuffer time.Duration
	// PendingTTL bounds how long a credit debit may remain unconfirmed.
	PendingTTL time.Duration
	// MinimumCharge is the smallest cash remainder the gateway accepts.
	MinimumCharge int64
}

// BookingService owns booking creation: availability, credit consumption,
// coupon redemption and the handoff to the payment orchestrator.
type BookingService struct {
	store        application.Store
	orchestrator *PaymentOrchestrator
	notifier     application.NotificationSender
	audit        application.AuditSink
	cfg          BookingConfig
	logger       *slog.Logger

	now func() time.Time
}

func NewBookingService(
	store application.Store,
	orchestrator *PaymentOrchestrator,
	notifier application.NotificationSender,
	audit application.AuditSink,
	cfg BookingConfig,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		store:        store,
		orchestrator: orchestrator,
		notifier:     notifier,
		audit:        audit,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateBookingResult is the answer to a successful creation.
type CreateBookingResult struct {
	BookingID   string
	Status      domain.BookingStatus
	CreditsUsed []domain.CreditConsumption
	AmountToPay int64
	PaymentURL  *string
	PixCode     *string
}

// CreateBookingWithCredit books a room funding it with credits first and a
// gateway charge for the remainder. Availability and balance are pre-checked
// outside the transaction as an optimization, then re-verified inside it:
// the exclusion constraint on insert and the locked balance re-read are the
// actual guarantees.
func (s *BookingService) CreateBookingWithCredit(
	ctx context.Context,
	userID, roomID string,
	start, end time.Time,
	couponCode *string,
	method domain.PaymentMethod,
	customerEmail string,
) (*CreateBookingResult, error) {
	now := s.now()
	repos := s.store.Repos()

	if method == "" {
		method = domain.MethodCheckout
	}

	if err := domain.ValidateInterval(start, end, now); err != nil {
		return nil, err
	}

	room, err := repos.Rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	available, err := repos.Bookings.IsAvailable(ctx, roomID, start, end, s.cfg.CleanupBuffer, "")
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, domain.NewRoomUnavailableError(roomID)
	}

	gross := room.PriceInterval(start, end)

	var coupon *domain.Coupon
	var discount int64
	if couponCode != nil && *couponCode != "" {
		coupon, err = repos.Coupons.FindByCode(ctx, *couponCode)
		if err != nil {
			if domain.IsErrorCode(err, domain.ErrCodeNotFound) {
				return nil, domain.NewCouponInvalidError(*couponCode, "unknown code")
			}
			return nil, err
		}
		if err := coupon.Validate(gross, now); err != nil {
			return nil, err
		}
		if coupon.Tracked() {
			// Cheap pre-check so a spent code fails before any debit work.
			// RecordUsage inside the transaction remains the guarantee.
			used, err := repos.Coupons.HasUsage(ctx, userID, coupon.Code, domain.ContextBooking)
			if err != nil {
				return nil, err
			}
			if used {
				return nil, domain.NewCouponAlreadyUsedError(coupon.Code)
			}
		}
		discount = coupon.DiscountFor(gross)
	}

	credits, err := repos.Credits.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	balance := domain.Balance(credits, room, start, end, now)
	pricing := domain.ComputePricing(gross, discount, balance)

	// A tracked coupon must leave a real transaction behind it.
	if coupon != nil && coupon.Tracked() && pricing.Net > 0 && pricing.Cash == 0 {
		return nil, domain.NewCouponRequiresCashError(coupon.Code)
	}
	if pricing.Cash > 0 && pricing.Cash < s.cfg.MinimumCharge {
		return nil, domain.NewPaymentBelowMinimumError(pricing.Cash, s.cfg.MinimumCharge)
	}

	bookingID := uuid.New().String()
	var booking *domain.Booking

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx application.RepositorySet) error {
		// Re-read the balance under lock: a concurrent debit against the
		// same grants must be observed here, never trusted from the
		// pre-transaction read.
		locked, err := tx.Credits.FindActiveByUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		eligible := domain.EligibleCredits(locked, room, start, end, now)
		plan, err := domain.PlanDebit(eligible, pricing.Credit)
		if err != nil {
			return err
		}
		if err := tx.Credits.ApplyDebits(ctx, plan); err != nil {
			return err
		}

		consumed := make([]domain.CreditConsumption, 0, len(plan))
		for _, d := range plan {
			consumed = append(consumed, domain.CreditConsumption{CreditID: d.CreditID, Amount: d.Amount})
		}

		if coupon != nil && coupon.Tracked() {
			alreadyUsed, err := tx.Coupons.RecordUsage(ctx, domain.CouponUsage{
				ID:        uuid.New().String(),
				UserID:    userID,
				Code:      coupon.Code,
				Context:   domain.ContextBooking,
				BookingID: &bookingID,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
			if alreadyUsed {
				return domain.NewCouponAlreadyUsedError(coupon.Code)
			}
		}

		booking, err = domain.NewBooking(
			bookingID, roomID, userID,
			start, end,
			pricing, consumed, coupon,
			s.cfg.PendingTTL, now,
		)
		if err != nil {
			return err
		}

		// The insert carries the durable overlap guarantee; a conflict
		// surfaces as RoomUnavailable and aborts everything above.
		return tx.Bookings.Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	result := &CreateBookingResult{
		BookingID:   booking.ID,
		Status:      booking.Status,
		CreditsUsed: booking.CreditsUsed,
		AmountToPay: pricing.Cash,
	}

	if pricing.Cash > 0 {
		payment, err := s.orchestrator.CreateIdempotent(ctx, booking, method, customerEmail)
		if err != nil {
			s.logger.Error("gateway charge failed after booking commit, compensating",
				"booking_id", booking.ID,
				"error", err,
			)
			s.orchestrator.Compensate(ctx, booking.ID)
			return nil, domain.NewPaymentCreationFailedError(err)
		}
		result.PaymentURL = payment.ExternalURL
		result.PixCode = payment.PixCode
	} else {
		// Fully credit-funded: confirmed immediately, the gateway is never
		// involved.
		s.sendConfirmation(ctx, booking)
	}

	s.recordAudit(ctx, "booking.create", userID, booking.ID, map[string]string{
		"room_id": roomID,
		"status":  string(booking.Status),
	})

	return result, nil
}

func (s *BookingService) sendConfirmation(ctx context.Context, booking *domain.Booking) {
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

func (s *BookingService) recordAudit(ctx context.Context, action, actorID, targetID string, metadata map[string]string) {
	if err := s.audit.Record(ctx, action, actorID, targetID, metadata); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}
