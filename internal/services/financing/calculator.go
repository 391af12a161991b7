// Package financing splits a sale subtotal into an upfront payment and a
// financed balance according to the customer's credit tier.
package financing

import (
	"fmt"
	"math"

	"tierpay/internal/domain/credit"
	domainErrors "tierpay/internal/errors"
	"tierpay/internal/models"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places of the settlement currency.
const MinorUnits int32 = 2

var (
	ErrArithmeticPrecondition = domainErrors.ErrArithmeticPrecondition
	ErrInvalidTier            = domainErrors.ErrInvalidTier
)

// Result is the outcome of Compute. Upfront + Financed always equals Subtotal.
type Result struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	Upfront           decimal.Decimal `json:"upfront"`
	Financed          decimal.Decimal `json:"financed"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	// InstallmentCount is zero for a pure cash sale.
	InstallmentCount int `json:"installment_count"`
	TierLevel        int `json:"tier_level"`
}

// Schedule returns the per-installment principals. The residual cent left by
// the division lands on the last installment.
func (r Result) Schedule() []decimal.Decimal {
	if !r.Financed.IsPositive() || r.InstallmentCount < 1 {
		return nil
	}
	return Split(r.Financed, r.InstallmentCount)
}

// Compute applies the tier to subtotal:
//
//	financed = min(subtotal * (1 - minUpfront), creditLimit)
//	upfront  = subtotal - financed
//
// Rounding is half-up to MinorUnits, applied once at the end.
func Compute(subtotal decimal.Decimal, tier credit.Tier) (Result, error) {
	if subtotal.IsNegative() {
		return Result{}, fmt.Errorf("%w: subtotal %s", ErrArithmeticPrecondition, subtotal)
	}
	if subtotal.GreaterThan(models.MaxMoneyAmount) {
		return Result{}, fmt.Errorf("%w: subtotal %s exceeds %s", ErrArithmeticPrecondition, subtotal, models.MaxMoneyAmount)
	}
	if err := tier.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidTier, err)
	}

	subtotal = Quantize(subtotal)
	ceiling := tier.CreditLimit.Truncate(MinorUnits)

	potential := subtotal.Mul(decimal.NewFromInt(1).Sub(tier.MinUpfrontPercentage))
	financed := decimal.Min(potential, ceiling).Round(MinorUnits)
	upfront := subtotal.Sub(financed)

	// Any residual is absorbed by the upfront leg; the financed leg is divided
	// further into installments and must stay as computed.
	if residual := subtotal.Sub(upfront.Add(financed)); !residual.IsZero() {
		upfront = upfront.Add(residual)
	}

	res := Result{
		Subtotal:          subtotal,
		Upfront:           upfront,
		Financed:          financed,
		InstallmentAmount: decimal.Zero,
		TierLevel:         tier.Level,
	}
	if financed.IsPositive() {
		res.InstallmentCount = tier.InstallmentCount
		res.InstallmentAmount = financed.Div(decimal.NewFromInt(int64(tier.InstallmentCount))).Round(MinorUnits)
	}
	return res, nil
}

// Split divides total into n parts truncated to MinorUnits, the remainder going
// to the last part. The parts always sum to total.
func Split(total decimal.Decimal, n int) []decimal.Decimal {
	if n < 1 {
		return nil
	}
	count := decimal.NewFromInt(int64(n))
	base := total.Div(count).Truncate(MinorUnits)

	parts := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = base
		allocated = allocated.Add(base)
	}
	parts[n-1] = total.Sub(allocated)
	return parts
}

// Quantize rounds an amount half-up to currency minor units.
func Quantize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MinorUnits)
}

// FromFloat converts a float amount, rejecting NaN and infinities.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrArithmeticPrecondition, f)
	}
	return decimal.NewFromFloat(f), nil
}
