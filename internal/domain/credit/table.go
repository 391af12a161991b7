package credit

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrTierNotFound = errors.New("credit tier not found")

// Table is the ordered tier schedule of one account category.
type Table struct {
	Category Category `json:"category"`
	Tiers    []Tier   `json:"tiers"`
}

// Validate enforces contiguous levels starting at 1, a non-increasing upfront
// percentage and a non-decreasing credit limit.
func (t *Table) Validate() error {
	if len(t.Tiers) == 0 {
		return fmt.Errorf("%s table has no tiers", t.Category)
	}
	for i, tier := range t.Tiers {
		if err := tier.Validate(); err != nil {
			return fmt.Errorf("%s table: %w", t.Category, err)
		}
		if tier.Level != i+1 {
			return fmt.Errorf("%s table: expected level %d, got %d", t.Category, i+1, tier.Level)
		}
		if i == 0 {
			continue
		}
		prev := t.Tiers[i-1]
		if tier.MinUpfrontPercentage.GreaterThan(prev.MinUpfrontPercentage) {
			return fmt.Errorf("%s table: upfront percentage increases at level %d", t.Category, tier.Level)
		}
		if tier.CreditLimit.LessThan(prev.CreditLimit) {
			return fmt.Errorf("%s table: credit limit decreases at level %d", t.Category, tier.Level)
		}
	}
	return nil
}

// Lookup returns the tier for level.
func (t *Table) Lookup(level int) (Tier, error) {
	if level < 1 || level > len(t.Tiers) {
		return Tier{}, fmt.Errorf("%w: %s level %d", ErrTierNotFound, t.Category, level)
	}
	return t.Tiers[level-1], nil
}

// Tables groups the individual and business schedules.
type Tables struct {
	byCategory map[Category]*Table
}

// NewTables validates and indexes the given tables.
func NewTables(tables ...*Table) (*Tables, error) {
	out := &Tables{byCategory: make(map[Category]*Table, len(tables))}
	for _, t := range tables {
		sort.Slice(t.Tiers, func(i, j int) bool { return t.Tiers[i].Level < t.Tiers[j].Level })
		if err := t.Validate(); err != nil {
			return nil, err
		}
		out.byCategory[t.Category] = t
	}
	for _, c := range []Category{CategoryIndividual, CategoryBusiness} {
		if _, ok := out.byCategory[c]; !ok {
			return nil, fmt.Errorf("missing %s tier table", c)
		}
	}
	return out, nil
}

// Tier resolves (category, level) to a tier.
func (t *Tables) Tier(category Category, level int) (Tier, error) {
	table, ok := t.byCategory[category]
	if !ok {
		return Tier{}, fmt.Errorf("%w: no table for category %q", ErrTierNotFound, category)
	}
	return table.Lookup(level)
}

// Table returns the schedule for a category.
func (t *Tables) Table(category Category) (*Table, bool) {
	table, ok := t.byCategory[category]
	return table, ok
}

type tierFile struct {
	Individual []tierRow `yaml:"individual"`
	Business   []tierRow `yaml:"business"`
}

type tierRow struct {
	Level                 int     `yaml:"level"`
	CreditLimit           float64 `yaml:"credit_limit"`
	MinUpfrontPercentage  float64 `yaml:"min_upfront_percentage"`
	InstallmentCount      int     `yaml:"installment_count"`
	TransactionsToAdvance int     `yaml:"transactions_to_advance"`
}

// Parse decodes a YAML tier schedule.
func Parse(data []byte) (*Tables, error) {
	var file tierFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode tier tables: %w", err)
	}
	return NewTables(
		&Table{Category: CategoryIndividual, Tiers: toTiers(file.Individual)},
		&Table{Category: CategoryBusiness, Tiers: toTiers(file.Business)},
	)
}

// LoadFile reads a YAML tier schedule from disk.
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tier tables: %w", err)
	}
	return Parse(data)
}

func toTiers(rows []tierRow) []Tier {
	tiers := make([]Tier, 0, len(rows))
	for _, r := range rows {
		tiers = append(tiers, Tier{
			Level:                 r.Level,
			CreditLimit:           decimal.NewFromFloat(r.CreditLimit),
			MinUpfrontPercentage:  decimal.NewFromFloat(r.MinUpfrontPercentage),
			InstallmentCount:      r.InstallmentCount,
			TransactionsToAdvance: r.TransactionsToAdvance,
		})
	}
	return tiers
}
