package session

import (
	"context"
	"errors"
	"fmt"

	"tierpay/internal/domain/credit"
	"tierpay/internal/repositories"
)

type creditTierProvider struct {
	profiles repositories.CreditProfileRepository
	tables   *credit.Tables
}

// NewCreditTierProvider resolves tiers from the credit profile table. Every
// call reads the profile afresh.
func NewCreditTierProvider(profiles repositories.CreditProfileRepository, tables *credit.Tables) TierProvider {
	if profiles == nil {
		panic("credit profile repository is required")
	}
	if tables == nil {
		panic("tier tables are required")
	}
	return &creditTierProvider{profiles: profiles, tables: tables}
}

func (p *creditTierProvider) TierFor(ctx context.Context, customerID uint) (credit.Tier, credit.Category, error) {
	profile, err := p.profiles.GetByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, repositories.ErrCreditProfileNotFound) {
			return credit.Tier{}, "", fmt.Errorf("%w: no profile for customer %d", ErrTierLookupFailed, customerID)
		}
		return credit.Tier{}, "", fmt.Errorf("%w: %v", ErrTierLookupFailed, err)
	}

	category, err := credit.ParseCategory(profile.AccountCategory)
	if err != nil {
		return credit.Tier{}, "", fmt.Errorf("%w: %v", ErrTierLookupFailed, err)
	}
	tier, err := p.tables.Tier(category, profile.Level)
	if err != nil {
		return credit.Tier{}, "", fmt.Errorf("%w: %v", ErrTierLookupFailed, err)
	}

	remaining := tier.CreditLimit.Sub(profile.OutstandingFinanced)
	return tier.WithCeiling(remaining), category, nil
}
