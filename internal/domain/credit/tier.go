// Package credit holds the installment-credit tier schedules for individual and
// business accounts.
package credit

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Category selects which tier table applies to an account.
type Category string

const (
	CategoryIndividual Category = "individual"
	CategoryBusiness   Category = "business"
)

func (c Category) String() string {
	return string(c)
}

// ParseCategory normalises a category name.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryIndividual:
		return CategoryIndividual, nil
	case CategoryBusiness:
		return CategoryBusiness, nil
	}
	return "", fmt.Errorf("unknown account category %q", s)
}

// Tier is one rung of the installment-credit program.
type Tier struct {
	Level                 int             `json:"level"`
	CreditLimit           decimal.Decimal `json:"credit_limit"`
	MinUpfrontPercentage  decimal.Decimal `json:"min_upfront_percentage"`
	InstallmentCount      int             `json:"installment_count"`
	TransactionsToAdvance int             `json:"transactions_to_advance"`
}

// Validate checks the per-tier constraints.
func (t Tier) Validate() error {
	if t.Level < 1 {
		return fmt.Errorf("tier level must be >= 1, got %d", t.Level)
	}
	if t.CreditLimit.IsNegative() {
		return fmt.Errorf("tier %d: credit limit must not be negative", t.Level)
	}
	if t.MinUpfrontPercentage.IsNegative() || t.MinUpfrontPercentage.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tier %d: minimum upfront percentage must be within [0,1]", t.Level)
	}
	if t.InstallmentCount < 1 {
		return fmt.Errorf("tier %d: installment count must be >= 1", t.Level)
	}
	if t.TransactionsToAdvance < 0 {
		return fmt.Errorf("tier %d: transactions to advance must not be negative", t.Level)
	}
	return nil
}

// WithCeiling returns a copy whose credit limit is capped at ceiling.
func (t Tier) WithCeiling(ceiling decimal.Decimal) Tier {
	if ceiling.IsNegative() {
		ceiling = decimal.Zero
	}
	t.CreditLimit = decimal.Min(t.CreditLimit, ceiling)
	return t
}
