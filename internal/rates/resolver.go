package rates

import (
	"math"

	"pricecalc/pkg/contracts/domain"
)

const tableCurrencyPairs = "currency_pairs"

// Resolver indexes the currency pair reference table by pair_id
type Resolver struct {
	rules map[string]domain.CurrencyPairRule
}

// NewResolver builds the pair index. Duplicate pair ids and pairs that
// require conversion without a finite positive factor are data quality
// faults.
func NewResolver(rules []domain.CurrencyPairRule) (*Resolver, error) {
	var faults domain.Faults
	index := make(map[string]domain.CurrencyPairRule, len(rules))

	for i, rule := range rules {
		if rule.PairID == "" {
			faults.Add(tableCurrencyPairs, i, "pair_id", "empty pair id", nil)
			continue
		}
		if _, dup := index[rule.PairID]; dup {
			faults.Add(tableCurrencyPairs, i, "pair_id", "duplicate pair id", rule.PairID)
			continue
		}
		if rule.RequiresConversion && !validFactor(rule.ConversionFactor) {
			faults.Add(tableCurrencyPairs, i, "conversion_factor",
				"conversion required but factor is not a finite positive number", rule.ConversionFactor)
			continue
		}
		index[rule.PairID] = rule
	}

	if err := faults.Err(); err != nil {
		return nil, err
	}
	return &Resolver{rules: index}, nil
}

// Resolve returns the rule for pairID, or false when the pair is unknown
func (r *Resolver) Resolve(pairID string) (domain.CurrencyPairRule, bool) {
	rule, ok := r.rules[pairID]
	return rule, ok
}

// Len returns the number of indexed pairs
func (r *Resolver) Len() int {
	return len(r.rules)
}

func validFactor(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
