package domain_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom() *domain.Room {
	return &domain.Room{ID: "room-1", Name: "Sala 1", Tier: 2, HourlyRate: 5000, ShiftRate: 18000}
}

func activeCredit(id string, remaining int64, expiresAt time.Time) domain.Credit {
	return domain.Credit{
		ID:              id,
		UserID:          "user-1",
		Amount:          remaining,
		RemainingAmount: remaining,
		Status:          domain.CreditConfirmed,
		ExpiresAt:       expiresAt,
	}
}

func TestCredit_EligibleFor(t *testing.T) {
	room := testRoom()
	now := baseTime
	start := now.Add(24 * time.Hour) // Tuesday
	end := start.Add(time.Hour)

	t.Run("active unrestricted credit is eligible", func(t *testing.T) {
		c := activeCredit("c-1", 1000, now.Add(time.Hour))
		assert.True(t, c.EligibleFor(room, start, end, now))
	})

	t.Run("drained credit is not", func(t *testing.T) {
		c := activeCredit("c-1", 0, now.Add(time.Hour))
		assert.False(t, c.EligibleFor(room, start, end, now))
	})

	t.Run("expired credit is not", func(t *testing.T) {
		c := activeCredit("c-1", 1000, now.Add(-time.Minute))
		assert.False(t, c.EligibleFor(room, start, end, now))
	})

	t.Run("room-bound credit only funds its room", func(t *testing.T) {
		other := "room-2"
		c := activeCredit("c-1", 1000, now.Add(time.Hour))
		c.RoomID = &other
		assert.False(t, c.EligibleFor(room, start, end, now))

		mine := room.ID
		c.RoomID = &mine
		assert.True(t, c.EligibleFor(room, start, end, now))
	})

	t.Run("tier-bound credit funds its tier and below", func(t *testing.T) {
		c := activeCredit("c-1", 1000, now.Add(time.Hour))
		higher := room.Tier + 1
		c.Tier = &higher
		assert.False(t, c.EligibleFor(room, start, end, now))

		same := room.Tier
		c.Tier = &same
		assert.True(t, c.EligibleFor(room, start, end, now))
	})
}

func TestUsageType_Allows(t *testing.T) {
	weekday := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC) // Tuesday
	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		usage    domain.UsageType
		start    time.Time
		duration time.Duration
		want     bool
	}{
		{domain.UsageAny, weekday, time.Hour, true},
		{domain.UsageAny, saturday, 7 * time.Hour, true},
		{domain.UsageHourly, weekday, time.Hour, true},
		{domain.UsageHourly, weekday, 2 * time.Hour, false},
		{domain.UsageHourly, saturday, time.Hour, false},
		{domain.UsageShift, weekday, domain.ShiftDuration, true},
		{domain.UsageShift, weekday, time.Hour, false},
		{domain.UsageShift, saturday, domain.ShiftDuration, false},
		{domain.UsageSaturdayHourly, saturday, time.Hour, true},
		{domain.UsageSaturdayHourly, weekday, time.Hour, false},
		{domain.UsageSaturdayShift, saturday, domain.ShiftDuration, true},
		{domain.UsageSaturdayShift, saturday, time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s_%s", tt.usage, tt.start.Weekday(), tt.duration), func(t *testing.T) {
			got := tt.usage.Allows(tt.start, tt.start.Add(tt.duration))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEligibleCredits_OrdersByExpiryThenID(t *testing.T) {
	room := testRoom()
	now := baseTime
	start := now.Add(24 * time.Hour)
	end := start.Add(time.Hour)

	credits := []domain.Credit{
		activeCredit("c-late", 1000, now.Add(72*time.Hour)),
		activeCredit("c-b", 1000, now.Add(24*time.Hour)),
		activeCredit("c-a", 1000, now.Add(24*time.Hour)),
		activeCredit("c-soon", 1000, now.Add(12*time.Hour)),
	}

	eligible := domain.EligibleCredits(credits, room, start, end, now)
	require.Len(t, eligible, 4)
	assert.Equal(t, "c-soon", eligible[0].ID)
	assert.Equal(t, "c-a", eligible[1].ID)
	assert.Equal(t, "c-b", eligible[2].ID)
	assert.Equal(t, "c-late", eligible[3].ID)
}

func TestPlanDebit_ExhaustsExpiringCreditsFirst(t *testing.T) {
	now := baseTime
	eligible := []domain.Credit{
		activeCredit("c-1", 3000, now.Add(12*time.Hour)),
		activeCredit("c-2", 5000, now.Add(24*time.Hour)),
		activeCredit("c-3", 4000, now.Add(48*time.Hour)),
	}

	plan, err := domain.PlanDebit(eligible, 7000)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, domain.CreditDebit{CreditID: "c-1", Amount: 3000}, plan[0])
	assert.Equal(t, domain.CreditDebit{CreditID: "c-2", Amount: 4000}, plan[1])
}

func TestPlanDebit_ZeroAmountIsEmpty(t *testing.T) {
	plan, err := domain.PlanDebit([]domain.Credit{activeCredit("c-1", 1000, baseTime.Add(time.Hour))}, 0)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestPlanDebit_InsufficientBalance(t *testing.T) {
	eligible := []domain.Credit{
		activeCredit("c-1", 3000, baseTime.Add(12*time.Hour)),
	}

	_, err := domain.PlanDebit(eligible, 5000)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInsufficientCredits))
}

func TestPlanRestore_RefillsMostConsumedFirstAndClamps(t *testing.T) {
	c1 := activeCredit("c-1", 5000, baseTime.Add(24*time.Hour))
	c1.RemainingAmount = 1000 // consumed 4000
	c2 := activeCredit("c-2", 3000, baseTime.Add(24*time.Hour))
	c2.RemainingAmount = 2000 // consumed 1000
	c3 := activeCredit("c-3", 2000, baseTime.Add(24*time.Hour))
	// untouched, no headroom

	plan := domain.PlanRestore([]domain.Credit{c1, c2, c3}, 4500)
	require.Len(t, plan, 2)
	assert.Equal(t, domain.CreditRestore{CreditID: "c-1", Amount: 4000}, plan[0])
	assert.Equal(t, domain.CreditRestore{CreditID: "c-2", Amount: 500}, plan[1])
}

func TestPlanRestore_NeverFabricatesBalance(t *testing.T) {
	c1 := activeCredit("c-1", 5000, baseTime.Add(24*time.Hour))
	c1.RemainingAmount = 3000 // consumed 2000

	// Asked to restore more than was ever consumed.
	plan := domain.PlanRestore([]domain.Credit{c1}, 10000)
	require.Len(t, plan, 1)
	assert.Equal(t, int64(2000), plan[0].Amount)
}

func TestApplyDebitRestore_InvariantHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		amount := rng.Int63n(10000) + 1
		c := domain.Credit{
			ID:              "c-prop",
			Amount:          amount,
			RemainingAmount: amount,
			Status:          domain.CreditConfirmed,
		}

		for op := 0; op < 20; op++ {
			delta := rng.Int63n(amount + 1)
			if rng.Intn(2) == 0 {
				if delta > c.RemainingAmount {
					delta = c.RemainingAmount
				}
				c.ApplyDebit(delta)
			} else {
				c.ApplyRestore(delta)
			}

			require.GreaterOrEqual(t, c.RemainingAmount, int64(0),
				"remaining must never go negative")
			require.LessOrEqual(t, c.RemainingAmount, c.Amount,
				"remaining must never exceed the original grant")
		}
	}
}

func TestApplyDebit_FlipsStatusAtZero(t *testing.T) {
	c := activeCredit("c-1", 1000, baseTime.Add(time.Hour))
	c.ApplyDebit(1000)
	assert.Equal(t, int64(0), c.RemainingAmount)
	assert.Equal(t, domain.CreditUsed, c.Status)

	c.ApplyRestore(400)
	assert.Equal(t, int64(400), c.RemainingAmount)
	assert.Equal(t, domain.CreditConfirmed, c.Status)
}
