// Package domain encodes the booking, credit, coupon and payment entities
// and the rules that keep them consistent.
package domain

import (
	"slices"
	"time"
)

// BookingStatus represents the current state of a booking in its lifecycle
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingRefunded  BookingStatus = "REFUNDED"
)

// FinancialStatus tracks whether the cash remainder of a booking was settled
type FinancialStatus string

const (
	FinancialPendingPayment FinancialStatus = "PENDING_PAYMENT"
	FinancialPaid           FinancialStatus = "PAID"
)

// CancelSource records who triggered a cancellation, for audit trails
type CancelSource string

const (
	CancelSourceUser    CancelSource = "USER"
	CancelSourceSystem  CancelSource = "SYSTEM"
	CancelSourceGateway CancelSource = "GATEWAY"
)

// Cancellation reasons. ReasonExpired is machine-distinguishable so expiry
// cleanup is never mistaken for a user cancellation.
const (
	ReasonUserCancelled = "USER_CANCELLED"
	ReasonExpired       = "EXPIRED"
	ReasonPaymentFailed = "PAYMENT_FAILED"
	ReasonRefunded      = "REFUNDED"
)

// CreditConsumption records how much was debited from a single credit for a
// booking, so cancellation and refunds can restore the exact grants consumed.
type CreditConsumption struct {
	CreditID string `json:"credit_id"`
	Amount   int64  `json:"amount"`
}

type Booking struct {
	ID     string
	RoomID string
	UserID string

	// Half-open interval [StartTime, EndTime)
	StartTime time.Time
	EndTime   time.Time

	Status          BookingStatus
	FinancialStatus FinancialStatus

	GrossAmount    int64
	DiscountAmount int64
	NetAmount      int64
	CreditAmount   int64
	CashAmount     int64

	CreditsUsed []CreditConsumption

	CouponCode     *string
	CouponSnapshot *Coupon

	ExpiresAt    *time.Time
	CancelReason *string
	CancelSource *CancelSource

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBooking builds a priced booking. The booking starts PENDING with an
// expiry horizon when a cash remainder exists, otherwise it is CONFIRMED
// immediately since there is nothing left to pay.
func NewBooking(
	id, roomID, userID string,
	start, end time.Time,
	pricing Pricing,
	creditsUsed []CreditConsumption,
	coupon *Coupon,
	pendingTTL time.Duration,
	now time.Time,
) (*Booking, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("booking ID")
	}
	if roomID == "" {
		return nil, NewMissingRequiredFieldError("room ID")
	}
	if userID == "" {
		return nil, NewMissingRequiredFieldError("user ID")
	}
	if err := ValidateInterval(start, end, now); err != nil {
		return nil, err
	}

	b := &Booking{
		ID:              id,
		RoomID:          roomID,
		UserID:          userID,
		StartTime:       start,
		EndTime:         end,
		Status:          BookingPending,
		FinancialStatus: FinancialPendingPayment,
		GrossAmount:     pricing.Gross,
		DiscountAmount:  pricing.Discount,
		NetAmount:       pricing.Net,
		CreditAmount:    pricing.Credit,
		CashAmount:      pricing.Cash,
		CreditsUsed:     creditsUsed,
		CouponSnapshot:  coupon,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if coupon != nil {
		code := coupon.Code
		b.CouponCode = &code
	}

	if pricing.Cash == 0 {
		b.Status = BookingConfirmed
		b.FinancialStatus = FinancialPaid
	} else {
		expires := now.Add(pendingTTL)
		b.ExpiresAt = &expires
	}

	return b, nil
}

// ValidateInterval enforces the basic shape of a bookable interval.
func ValidateInterval(start, end, now time.Time) error {
	if !start.Before(end) {
		return NewInvalidIntervalError("start must be before end")
	}
	if start.Before(now) {
		return NewInvalidIntervalError("start must be in the future")
	}
	return nil
}

// Overlaps reports whether a candidate interval conflicts with an existing
// booking once the cleanup buffer is added to the existing booking's end.
// The buffer is asymmetric: it models turnaround time after the existing
// booking, not before the new one.
func Overlaps(newStart, newEnd, existingStart, existingEnd time.Time, buffer time.Duration) bool {
	return newStart.Before(existingEnd.Add(buffer)) && newEnd.After(existingStart)
}

// Confirm applies a successful payment to the booking.
func (b *Booking) Confirm() error {
	if err := b.transition(BookingConfirmed); err != nil {
		return err
	}
	b.FinancialStatus = FinancialPaid
	b.ExpiresAt = nil
	return nil
}

// Cancel moves the booking to CANCELLED recording who did it and why.
func (b *Booking) Cancel(reason string, source CancelSource) error {
	if err := b.transition(BookingCancelled); err != nil {
		return err
	}
	b.CancelReason = &reason
	b.CancelSource = &source
	b.ExpiresAt = nil
	return nil
}

// MarkRefunded flips a confirmed booking to REFUNDED after a full refund.
func (b *Booking) MarkRefunded() error {
	if err := b.transition(BookingRefunded); err != nil {
		return err
	}
	reason := ReasonRefunded
	source := CancelSourceGateway
	b.CancelReason = &reason
	b.CancelSource = &source
	return nil
}

func (b *Booking) transition(target BookingStatus) error {
	if err := b.canTransitionTo(target); err != nil {
		return err
	}
	b.Status = target
	return nil
}

// canTransitionTo is the single authority on booking lifecycle moves.
// CANCELLED and REFUNDED are absorbing; nothing ever returns to PENDING.
func (b *Booking) canTransitionTo(target BookingStatus) error {
	switch b.Status {
	case BookingPending:
		return b.allow(target, BookingConfirmed, BookingCancelled)
	case BookingConfirmed:
		return b.allow(target, BookingCancelled, BookingRefunded)
	}
	return NewInvalidTransitionError(b.Status, target)
}

func (b *Booking) allow(target BookingStatus, allowed ...BookingStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(b.Status, target)
}

// IsTerminal reports whether the booking reached an absorbing state.
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case BookingCancelled, BookingRefunded:
		return true
	default:
		return false
	}
}

// IsExpired reports whether a PENDING booking outlived its payment horizon.
// Bookings without an expiry get a hard ceiling on their age as a fallback.
func (b *Booking) IsExpired(now time.Time, fallbackCeiling time.Duration) bool {
	if b.Status != BookingPending {
		return false
	}
	if b.ExpiresAt != nil {
		return b.ExpiresAt.Before(now)
	}
	return b.CreatedAt.Add(fallbackCeiling).Before(now)
}
