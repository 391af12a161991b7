package credit

import "github.com/shopspring/decimal"

func tier(level int, limit int64, upfront string, installments, toAdvance int) Tier {
	return Tier{
		Level:                 level,
		CreditLimit:           decimal.NewFromInt(limit),
		MinUpfrontPercentage:  decimal.RequireFromString(upfront),
		InstallmentCount:      installments,
		TransactionsToAdvance: toAdvance,
	}
}

// DefaultTables is the built-in schedule used when no CREDIT_TIERS_FILE is configured.
func DefaultTables() *Tables {
	tables, err := NewTables(
		&Table{Category: CategoryIndividual, Tiers: []Tier{
			tier(1, 100, "0.50", 2, 3),
			tier(2, 250, "0.40", 3, 5),
			tier(3, 500, "0.30", 3, 8),
			tier(4, 1000, "0.25", 4, 12),
			tier(5, 2500, "0.20", 6, 0),
		}},
		&Table{Category: CategoryBusiness, Tiers: []Tier{
			tier(1, 1000, "0.40", 3, 5),
			tier(2, 5000, "0.30", 4, 10),
			tier(3, 15000, "0.25", 6, 20),
			tier(4, 50000, "0.20", 12, 0),
		}},
	)
	if err != nil {
		panic("built-in credit tiers are invalid: " + err.Error())
	}
	return tables
}
