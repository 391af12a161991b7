package settlement

import (
	"time"

	"tierpay/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultBillingPeriod spaces installment due dates.
const DefaultBillingPeriod = 30 * 24 * time.Hour

type Config struct {
	BillingPeriod time.Duration
}

// Result is the sale and commitments emitted for one session.
type Result struct {
	Sale        models.Sale                    `json:"sale"`
	Commitments []models.InstallmentCommitment `json:"commitments"`
	// Replayed is true when the records already existed
	Replayed bool `json:"replayed"`
}

// TotalCommitted sums the commitment principals.
func (r *Result) TotalCommitted() decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.Commitments {
		total = total.Add(c.Principal)
	}
	return total
}
