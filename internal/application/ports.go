package application

import (
	"context"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
)

// ChargeRequest is what the gateway needs to open a charge.
type ChargeRequest struct {
	BookingID     string
	UserID        string
	Amount        int64
	Method        domain.PaymentMethod
	CustomerEmail string
	Description   string
}

// ChargeResponse is the gateway's reference for a created charge.
type ChargeResponse struct {
	ExternalID  string
	CheckoutURL string
	Status      string
	// PixCode is the copy-paste payment code; set only for PIX charges.
	PixCode string
}

// ChargeStatus is the gateway's current view of a charge, including how much
// of it has been refunded.
type ChargeStatus struct {
	ExternalID     string
	Status         string
	Amount         int64
	RefundedAmount int64
}

// PaymentGateway is the port for the external payment provider.
// Gateway calls are slow and non-transactional; they must never run inside a
// store transaction.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest, idempotencyKey string) (*ChargeResponse, error)
	CancelCharge(ctx context.Context, externalID string) error
	GetCharge(ctx context.Context, externalID string) (*ChargeStatus, error)
	GetPixCode(ctx context.Context, externalID string) (string, error)
}

// BookingConfirmation is the payload handed to the notification subsystem.
type BookingConfirmation struct {
	BookingID string
	UserID    string
	RoomID    string
	StartTime time.Time
	EndTime   time.Time
}

// NotificationSender is the port for the email/event subsystem. Failures are
// soft: they are logged and never abort a booking operation.
type NotificationSender interface {
	SendBookingConfirmation(ctx context.Context, n BookingConfirmation) error
}

// AuditSink records actions for the audit trail.
type AuditSink interface {
	Record(ctx context.Context, action, actorID, targetID string, metadata map[string]string) error
}

// BookingRepository is the port for booking persistence. Create translates
// the store's exclusion-constraint violation into RoomUnavailable so callers
// can distinguish overbooking from any other constraint failure.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	FindByID(ctx context.Context, id string) (*domain.Booking, error)
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error)
	Update(ctx context.Context, booking *domain.Booking) error
	// IsAvailable is the optimistic pre-check; the exclusion constraint on
	// insert is the actual guarantee.
	IsAvailable(ctx context.Context, roomID string, start, end time.Time, buffer time.Duration, excludeBookingID string) (bool, error)
	FindExpiredPending(ctx context.Context, now time.Time, fallbackCeiling time.Duration, limit int) ([]*domain.Booking, error)
	// ClaimForCancellation conditionally cancels a PENDING booking and
	// reports whether this caller won the claim. Safe to run concurrently.
	ClaimForCancellation(ctx context.Context, id, reason string, source domain.CancelSource) (bool, error)
}

// CreditRepository is the port for the credit ledger's storage.
type CreditRepository interface {
	FindActiveByUser(ctx context.Context, userID string) ([]domain.Credit, error)
	// FindActiveByUserForUpdate locks the rows so a concurrent debit against
	// the same grants observes this transaction's effect.
	FindActiveByUserForUpdate(ctx context.Context, userID string) ([]domain.Credit, error)
	FindByIDsForUpdate(ctx context.Context, ids []string) ([]domain.Credit, error)
	ApplyDebits(ctx context.Context, debits []domain.CreditDebit) error
	ApplyRestores(ctx context.Context, restores []domain.CreditRestore) error
}

// CouponRepository is the port for coupon definitions and the usage ledger.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	// HasUsage reports whether a usage row exists for (user, code, context).
	// It is a cheap pre-check; RecordUsage inside the transaction remains
	// the guarantee.
	HasUsage(ctx context.Context, userID, code string, usageContext domain.UsageContext) (bool, error)
	// RecordUsage inserts a usage row; a duplicate (user, code, context)
	// reports alreadyUsed instead of an error.
	RecordUsage(ctx context.Context, usage domain.CouponUsage) (alreadyUsed bool, err error)
	// RestoreByBooking deletes the usage row so the coupon becomes available
	// again; reports whether a row existed.
	RestoreByBooking(ctx context.Context, bookingID string) (bool, error)
}

// PaymentRepository is the port for local payment rows. Lookup methods that
// model "may or may not exist" return (nil, nil) when absent.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	Update(ctx context.Context, payment *domain.Payment) error
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
	FindActiveByBooking(ctx context.Context, bookingID string) (*domain.Payment, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.Payment, error)
	HasApprovedForBooking(ctx context.Context, bookingID string) (bool, error)
}

// WebhookEventRepository de-duplicates gateway callbacks on the external
// event id.
type WebhookEventRepository interface {
	Record(ctx context.Context, externalEventID, eventType string) (alreadyProcessed bool, err error)
}

// RoomRepository reads the room catalogue (managed elsewhere).
type RoomRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Room, error)
}

// RepositorySet bundles the repositories sharing one executor: either the
// pool for ambient reads or a single transaction.
type RepositorySet struct {
	Bookings      BookingRepository
	Credits       CreditRepository
	Coupons       CouponRepository
	Payments      PaymentRepository
	WebhookEvents WebhookEventRepository
	Rooms         RoomRepository
}

// Store gives services ambient repository access and transactional scopes.
// Every state-mutating operation on bookings, credits or coupon usages must
// run inside WithTransaction.
type Store interface {
	Repos() RepositorySet
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos RepositorySet) error) error
}
