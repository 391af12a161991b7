package financing

import (
	"math"
	"math/rand"
	"testing"

	"tierpay/internal/domain/credit"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testTier(limit, upfront string, installments int) credit.Tier {
	return credit.Tier{
		Level:                1,
		CreditLimit:          d(limit),
		MinUpfrontPercentage: d(upfront),
		InstallmentCount:     installments,
	}
}

func fixed(values []decimal.Decimal) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.StringFixed(MinorUnits)
	}
	return out
}

func TestCompute_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		subtotal     string
		tier         credit.Tier
		upfront      string
		financed     string
		installment  string
		schedule     []string
		installments int
	}{
		{
			name:         "percentage bound",
			subtotal:     "100",
			tier:         testTier("1000", "0.3", 3),
			upfront:      "30.00",
			financed:     "70.00",
			installment:  "23.33",
			schedule:     []string{"23.33", "23.33", "23.34"},
			installments: 3,
		},
		{
			name:         "credit limit bound",
			subtotal:     "500",
			tier:         testTier("50", "0.2", 5),
			upfront:      "450.00",
			financed:     "50.00",
			installment:  "10.00",
			schedule:     []string{"10.00", "10.00", "10.00", "10.00", "10.00"},
			installments: 5,
		},
		{
			name:        "zero subtotal",
			subtotal:    "0",
			tier:        testTier("1000", "0.3", 3),
			upfront:     "0.00",
			financed:    "0.00",
			installment: "0.00",
		},
		{
			name:        "zero credit limit is a cash sale",
			subtotal:    "80",
			tier:        testTier("0", "0.3", 3),
			upfront:     "80.00",
			financed:    "0.00",
			installment: "0.00",
		},
		{
			name:         "half cent rounds up on the financed leg",
			subtotal:     "10.01",
			tier:         testTier("1000", "0.5", 2),
			upfront:      "5.00",
			financed:     "5.01",
			installment:  "2.51",
			schedule:     []string{"2.50", "2.51"},
			installments: 2,
		},
		{
			name:        "full upfront",
			subtotal:    "42.10",
			tier:        testTier("1000", "1", 4),
			upfront:     "42.10",
			financed:    "0.00",
			installment: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compute(d(tt.subtotal), tt.tier)
			require.NoError(t, err)

			assert.Equal(t, tt.upfront, res.Upfront.StringFixed(MinorUnits))
			assert.Equal(t, tt.financed, res.Financed.StringFixed(MinorUnits))
			assert.Equal(t, tt.installment, res.InstallmentAmount.StringFixed(MinorUnits))
			assert.Equal(t, tt.installments, res.InstallmentCount)
			if tt.schedule == nil {
				assert.Empty(t, res.Schedule())
			} else {
				assert.Equal(t, tt.schedule, fixed(res.Schedule()))
			}
		})
	}
}

func TestCompute_Preconditions(t *testing.T) {
	_, err := Compute(d("-0.01"), testTier("100", "0.3", 3))
	assert.ErrorIs(t, err, ErrArithmeticPrecondition)

	_, err = Compute(d("10"), testTier("100", "0.3", 0))
	assert.ErrorIs(t, err, ErrInvalidTier)

	_, err = Compute(d("1000000000000"), testTier("100", "0.3", 3))
	assert.ErrorIs(t, err, ErrArithmeticPrecondition)

	_, err = Compute(d("999999999999.99"), testTier("100", "0.3", 3))
	assert.NoError(t, err)

	_, err = FromFloat(math.NaN())
	assert.ErrorIs(t, err, ErrArithmeticPrecondition)

	_, err = FromFloat(math.Inf(1))
	assert.ErrorIs(t, err, ErrArithmeticPrecondition)

	v, err := FromFloat(12.5)
	require.NoError(t, err)
	assert.Equal(t, "12.5", v.String())
}

func TestCompute_ConservationAndCeiling(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	percentages := []string{"0", "0.05", "0.2", "0.3", "0.333", "0.5", "0.75", "1"}

	for i := 0; i < 2000; i++ {
		subtotal := decimal.New(rng.Int63n(5_000_000), -MinorUnits)
		tier := credit.Tier{
			Level:                1,
			CreditLimit:          decimal.New(rng.Int63n(2_000_000), -MinorUnits),
			MinUpfrontPercentage: d(percentages[rng.Intn(len(percentages))]),
			InstallmentCount:     1 + rng.Intn(12),
		}

		res, err := Compute(subtotal, tier)
		require.NoError(t, err)

		require.True(t, res.Upfront.Add(res.Financed).Equal(subtotal),
			"conservation broken for %s with %+v: %s + %s", subtotal, tier, res.Upfront, res.Financed)
		require.False(t, res.Financed.GreaterThan(tier.CreditLimit),
			"financed %s above ceiling %s", res.Financed, tier.CreditLimit)
		require.False(t, res.Upfront.IsNegative())
		require.False(t, res.Financed.IsNegative())

		sum := decimal.Zero
		for _, p := range res.Schedule() {
			sum = sum.Add(p)
		}
		require.True(t, sum.Equal(res.Financed))
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"0.33", "0.33", "0.34"}, fixed(Split(d("1"), 3)))
	assert.Equal(t, []string{"0.66", "0.67"}, fixed(Split(d("1.33"), 2)))
	assert.Equal(t, []string{"5.00"}, fixed(Split(d("5"), 1)))
	assert.Nil(t, Split(d("5"), 0))
}
