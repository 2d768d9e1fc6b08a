package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForSpent(t *testing.T) {
	cases := []struct {
		name         string
		spent        decimal.Decimal
		wantLevel    int
		wantDiscount decimal.Decimal
	}{
		{name: "zero spent", spent: decimal.Zero, wantLevel: 1, wantDiscount: decimal.Zero},
		{name: "negative treated as base", spent: decimal.NewFromInt(-100), wantLevel: 1, wantDiscount: decimal.Zero},
		{name: "just below level 2", spent: decimal.NewFromInt(4_999_999), wantLevel: 1, wantDiscount: decimal.Zero},
		// ровно на пороге - ступень уже новая
		{name: "exactly level 2", spent: decimal.NewFromInt(5_000_000), wantLevel: 2, wantDiscount: decimal.NewFromInt(3)},
		{name: "mid level 2", spent: decimal.NewFromInt(12_000_000), wantLevel: 2, wantDiscount: decimal.NewFromInt(3)},
		{name: "exactly level 3", spent: decimal.NewFromInt(20_000_000), wantLevel: 3, wantDiscount: decimal.NewFromInt(5)},
		{name: "exactly vip", spent: decimal.NewFromInt(50_000_000), wantLevel: 4, wantDiscount: decimal.NewFromInt(10)},
		{name: "far beyond vip", spent: decimal.NewFromInt(1_000_000_000), wantLevel: 4, wantDiscount: decimal.NewFromInt(10)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tier := TierForSpent(tc.spent)
			assert.Equal(t, tc.wantLevel, tier.Level)
			assert.True(t, tc.wantDiscount.Equal(tier.Discount),
				"want discount %s, got %s", tc.wantDiscount, tier.Discount)
		})
	}
}

// TestTierMonotonic ступень не может понизиться при росте трат.
func TestTierMonotonic(t *testing.T) {
	step := decimal.NewFromInt(500_000)
	spent := decimal.Zero
	prevLevel := 0

	for i := 0; i < 150; i++ {
		tier := TierForSpent(spent)
		require.GreaterOrEqual(t, tier.Level, prevLevel, "tier dropped at spent %s", spent)
		prevLevel = tier.Level
		spent = spent.Add(step)
	}
	require.Equal(t, 4, prevLevel)
}

func TestNextTierThreshold(t *testing.T) {
	next, ok := NextTierThreshold(decimal.Zero)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(5_000_000).Equal(next))

	next, ok = NextTierThreshold(decimal.NewFromInt(5_000_000))
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(20_000_000).Equal(next))

	_, ok = NextTierThreshold(decimal.NewFromInt(50_000_000))
	assert.False(t, ok)
}
