package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateCharge(t *testing.T) {
	cases := []struct {
		name     string
		rate     decimal.Decimal
		quantity int64
		discount decimal.Decimal
		want     string
	}{
		{
			name:     "no discount",
			rate:     decimal.NewFromInt(15_000),
			quantity: 1000,
			discount: decimal.Zero,
			want:     "15000",
		},
		{
			name:     "three percent discount",
			rate:     decimal.NewFromInt(15_000),
			quantity: 2500,
			discount: decimal.NewFromInt(3),
			want:     "36375",
		},
		{
			name:     "vip discount",
			rate:     decimal.NewFromInt(20_000),
			quantity: 500,
			discount: decimal.NewFromInt(10),
			want:     "9000",
		},
		{
			name:     "fractional quantity of a thousand",
			rate:     decimal.NewFromInt(1000),
			quantity: 1,
			discount: decimal.NewFromInt(5),
			want:     "0.95",
		},
		{
			// банковское округление: половина уходит к четной цифре
			name:     "half rounds down to even",
			rate:     decimal.RequireFromString("10.01"),
			quantity: 500,
			discount: decimal.Zero,
			want:     "5",
		},
		{
			name:     "half rounds up to even",
			rate:     decimal.RequireFromString("10.03"),
			quantity: 500,
			discount: decimal.Zero,
			want:     "5.02",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateCharge(tc.rate, tc.quantity, tc.discount)
			want := decimal.RequireFromString(tc.want)
			assert.True(t, want.Equal(got), "want %s, got %s", want, got)
		})
	}
}

// TestCalculateChargeDeterministic одинаковые входы всегда дают одинаковую
// стоимость: функция чистая, плавающая точка не участвует.
func TestCalculateChargeDeterministic(t *testing.T) {
	rate := decimal.RequireFromString("1234.567")
	first := CalculateCharge(rate, 777, decimal.NewFromInt(3))
	for i := 0; i < 10; i++ {
		assert.True(t, first.Equal(CalculateCharge(rate, 777, decimal.NewFromInt(3))))
	}
}
