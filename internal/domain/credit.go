package domain

import (
	"sort"
	"time"
)

// CreditStatus tracks whether a grant still has value left
type CreditStatus string

const (
	CreditConfirmed CreditStatus = "CONFIRMED"
	CreditUsed      CreditStatus = "USED"
)

// UsageType restricts which days and durations a credit may fund.
// The zero value means unrestricted.
type UsageType string

const (
	UsageAny            UsageType = ""
	UsageHourly         UsageType = "HOURLY"
	UsageShift          UsageType = "SHIFT"
	UsageSaturdayHourly UsageType = "SATURDAY_HOURLY"
	UsageSaturdayShift  UsageType = "SATURDAY_SHIFT"
)

// Credit is a prepaid balance grant. RoomID and Tier narrow where it may be
// spent; ExpiresAt bounds when.
type Credit struct {
	ID              string
	UserID          string
	RoomID          *string
	Tier            *int
	UsageType       UsageType
	Amount          int64
	RemainingAmount int64
	Status          CreditStatus
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// CreditDebit is one step of a debit plan: consume Amount from CreditID.
type CreditDebit struct {
	CreditID string
	Amount   int64
}

// CreditRestore is one step of a restore plan: give Amount back to CreditID.
type CreditRestore struct {
	CreditID string
	Amount   int64
}

// EligibleFor reports whether this credit may fund the given interval on the
// given room.
func (c *Credit) EligibleFor(room *Room, start, end time.Time, now time.Time) bool {
	if c.RemainingAmount <= 0 {
		return false
	}
	if !c.ExpiresAt.After(now) {
		return false
	}
	if c.RoomID != nil && *c.RoomID != room.ID {
		return false
	}
	if c.Tier != nil && *c.Tier > room.Tier {
		return false
	}
	return c.UsageType.Allows(start, end)
}

// Allows checks the day/duration restriction of a usage type against an
// interval. Weekday types reject Saturdays and vice versa; SHIFT types fund
// only the fixed shift block, HOURLY types only a single hour.
func (u UsageType) Allows(start, end time.Time) bool {
	saturday := start.Weekday() == time.Saturday
	duration := end.Sub(start)

	switch u {
	case UsageAny:
		return true
	case UsageHourly:
		return !saturday && duration == time.Hour
	case UsageShift:
		return !saturday && duration == ShiftDuration
	case UsageSaturdayHourly:
		return saturday && duration == time.Hour
	case UsageSaturdayShift:
		return saturday && duration == ShiftDuration
	default:
		return false
	}
}

// EligibleCredits filters a user's credits down to those that may fund the
// interval, ordered nearest expiry first so the plan drains expiring value
// before longer-lived grants. Ties break on ID to keep plans deterministic.
func EligibleCredits(credits []Credit, room *Room, start, end time.Time, now time.Time) []Credit {
	eligible := make([]Credit, 0, len(credits))
	for _, c := range credits {
		if c.EligibleFor(room, start, end, now) {
			eligible = append(eligible, c)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].ExpiresAt.Equal(eligible[j].ExpiresAt) {
			return eligible[i].ExpiresAt.Before(eligible[j].ExpiresAt)
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible
}

// Balance sums the remaining amount over eligible credits.
func Balance(credits []Credit, room *Room, start, end time.Time, now time.Time) int64 {
	var total int64
	for _, c := range EligibleCredits(credits, room, start, end, now) {
		total += c.RemainingAmount
	}
	return total
}

// PlanDebit allocates amount across eligible credits, exhausting each credit
// before moving to the next. Credits must already be ordered nearest expiry
// first (EligibleCredits does this). Fails with InsufficientCredits when the
// grants cannot cover the amount; the caller must run this check again inside
// its transaction to close the read-then-debit race.
func PlanDebit(eligible []Credit, amount int64) ([]CreditDebit, error) {
	if amount <= 0 {
		return nil, nil
	}

	var available int64
	for _, c := range eligible {
		available += c.RemainingAmount
	}
	if available < amount {
		return nil, NewInsufficientCreditsError(available, amount)
	}

	plan := make([]CreditDebit, 0, len(eligible))
	left := amount
	for _, c := range eligible {
		if left == 0 {
			break
		}
		take := c.RemainingAmount
		if take > left {
			take = left
		}
		plan = append(plan, CreditDebit{CreditID: c.ID, Amount: take})
		left -= take
	}
	return plan, nil
}

// PlanRestore distributes total back across the given credits without ever
// pushing a credit's remaining amount above its original grant. Credits with
// the most consumed value are refilled first (stable by ID). The total is
// clamped to what was actually consumed, never fabricating balance.
func PlanRestore(credits []Credit, total int64) []CreditRestore {
	if total <= 0 {
		return nil
	}

	ordered := make([]Credit, len(credits))
	copy(ordered, credits)
	sort.Slice(ordered, func(i, j int) bool {
		hi := ordered[i].Amount - ordered[i].RemainingAmount
		hj := ordered[j].Amount - ordered[j].RemainingAmount
		if hi != hj {
			return hi > hj
		}
		return ordered[i].ID < ordered[j].ID
	})

	plan := make([]CreditRestore, 0, len(ordered))
	left := total
	for _, c := range ordered {
		if left == 0 {
			break
		}
		headroom := c.Amount - c.RemainingAmount
		if headroom <= 0 {
			continue
		}
		give := headroom
		if give > left {
			give = left
		}
		plan = append(plan, CreditRestore{CreditID: c.ID, Amount: give})
		left -= give
	}
	return plan
}

// ApplyDebit mutates the credit for one plan step, keeping the invariant
// 0 <= RemainingAmount <= Amount.
func (c *Credit) ApplyDebit(amount int64) {
	c.RemainingAmount -= amount
	if c.RemainingAmount < 0 {
		c.RemainingAmount = 0
	}
	if c.RemainingAmount == 0 {
		c.Status = CreditUsed
	}
}

// ApplyRestore mutates the credit for one restore step.
func (c *Credit) ApplyRestore(amount int64) {
	c.RemainingAmount += amount
	if c.RemainingAmount > c.Amount {
		c.RemainingAmount = c.Amount
	}
	if c.RemainingAmount > 0 {
		c.Status = CreditConfirmed
	}
}
