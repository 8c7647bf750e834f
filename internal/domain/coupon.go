package domain

import "time"

// UsageContext distinguishes where a coupon was redeemed.
type UsageContext string

const (
	ContextBooking  UsageContext = "BOOKING"
	ContextPurchase UsageContext = "PURCHASE"
)

// Coupon is the immutable snapshot of a discount code at redemption time.
// AdminOverride codes set the price directly and are exempt from usage
// tracking entirely.
type Coupon struct {
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discount_percent"`
	MinAmount       int64      `json:"min_amount"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	AdminOverride   bool       `json:"admin_override"`
}

// CouponUsage is one redemption row. The (UserID, Code, Context) tuple is
// unique in the store, which is what enforces single use.
type CouponUsage struct {
	ID        string
	UserID    string
	Code      string
	Context   UsageContext
	BookingID *string
	CreatedAt time.Time
}

// Validate checks the coupon against its validity window and minimum amount.
// It does not check prior usage; that is the ledger's job inside the
// transaction.
func (c *Coupon) Validate(grossAmount int64, now time.Time) error {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return NewCouponInvalidError(c.Code, "not yet valid")
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return NewCouponInvalidError(c.Code, "expired")
	}
	if grossAmount < c.MinAmount {
		return NewCouponInvalidError(c.Code, "booking amount below coupon minimum")
	}
	if c.DiscountPercent < 0 || c.DiscountPercent > 100 {
		return NewCouponInvalidError(c.Code, "discount out of range")
	}
	return nil
}

// DiscountFor computes the discount this coupon grants on a gross amount.
func (c *Coupon) DiscountFor(grossAmount int64) int64 {
	return grossAmount * int64(c.DiscountPercent) / 100
}

// Tracked reports whether redemptions of this coupon are recorded in the
// usage ledger. Administrative price overrides are not.
func (c *Coupon) Tracked() bool {
	return !c.AdminOverride
}
