package domain

import (
	"fmt"
	"time"
)

// PaymentStatus mirrors the gateway's charge lifecycle
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentApproved  PaymentStatus = "APPROVED"
	PaymentInProcess PaymentStatus = "IN_PROCESS"
	PaymentRejected  PaymentStatus = "REJECTED"
)

// PaymentMethod selects how the cash remainder is collected
type PaymentMethod string

const (
	MethodCheckout PaymentMethod = "CHECKOUT"
	MethodPix      PaymentMethod = "PIX"
)

// Payment is the local record of one external charge attempt. At most one
// active payment may exist per booking.
type Payment struct {
	ID             string
	BookingID      string
	UserID         string
	Amount         int64
	Status         PaymentStatus
	Method         PaymentMethod
	ExternalID     *string
	ExternalURL    *string
	PixCode        *string
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BuildIdempotencyKey derives the deterministic key that makes a logical
// charge attempt unique: <entityKind>:<entityId>:<method>.
func BuildIdempotencyKey(entityKind, entityID string, method PaymentMethod) string {
	return fmt.Sprintf("%s:%s:%s", entityKind, entityID, method)
}

// IsActive reports whether this payment still occupies the booking's single
// active-payment slot.
func (p *Payment) IsActive() bool {
	switch p.Status {
	case PaymentPending, PaymentApproved, PaymentInProcess:
		return true
	default:
		return false
	}
}

// Approve marks the payment settled. Approving twice is a no-op so duplicate
// webhook deliveries stay idempotent. REJECTED is final for a charge: once a
// payment was rejected or refunded, a late approval must not re-occupy the
// booking's active-payment slot.
func (p *Payment) Approve() {
	if p.Status == PaymentRejected {
		return
	}
	p.Status = PaymentApproved
}

// Reject releases the active-payment slot.
func (p *Payment) Reject() {
	p.Status = PaymentRejected
}

// WebhookEvent is a gateway callback keyed by the provider's event id.
// Processing the same external event id twice must be a no-op.
type WebhookEvent struct {
	ExternalEventID string
	EventType       string
	ProcessedAt     time.Time
}

// Webhook event types delivered by the gateway
const (
	EventPaymentApproved = "payment.approved"
	EventPaymentRejected = "payment.rejected"
	EventPaymentRefunded = "payment.refunded"
)
