package rates

import (
	"errors"
	"math"
	"time"

	"pricecalc/pkg/contracts/domain"
)

const tablePrices = "prices"

// Options configures a Pipeline
type Options struct {
	SpotWindow      time.Duration
	DuplicatePolicy DuplicatePolicy
}

// DefaultOptions returns the standard one hour, first-seen configuration
func DefaultOptions() Options {
	return Options{
		SpotWindow:      DefaultSpotWindow,
		DuplicatePolicy: DuplicateFirstSeen,
	}
}

// Pipeline holds the indexed reference tables of one conversion run
type Pipeline struct {
	resolver *Resolver
	matcher  *Matcher
}

// NewPipeline indexes the pair rules and spot rates. Faults from both
// tables are reported together.
func NewPipeline(rules []domain.CurrencyPairRule, spots []domain.SpotRateObservation, opts Options) (*Pipeline, error) {
	resolver, rerr := NewResolver(rules)
	matcher, merr := NewMatcher(spots, opts.SpotWindow, opts.DuplicatePolicy)

	if rerr != nil || merr != nil {
		return nil, joinFaults(rerr, merr)
	}
	return &Pipeline{resolver: resolver, matcher: matcher}, nil
}

// Resolver exposes the pair index
func (p *Pipeline) Resolver() *Resolver {
	return p.resolver
}

// Matcher exposes the spot rate index
func (p *Pipeline) Matcher() *Matcher {
	return p.matcher
}

// ConvertOne resolves and converts a single price row
func (p *Pipeline) ConvertOne(obs domain.PriceObservation) domain.ConvertedPrice {
	rule, ok := p.resolver.Resolve(obs.PairID)
	if !ok {
		return Convert(obs, nil, nil)
	}
	if !rule.RequiresConversion {
		return Convert(obs, &rule, nil)
	}
	spot, found := p.matcher.Match(obs.PairID, obs.Timestamp)
	if !found {
		return Convert(obs, &rule, nil)
	}
	return Convert(obs, &rule, &spot)
}

// Convert produces one result per price row, in input order. Rows are
// independent of each other.
func (p *Pipeline) Convert(prices []domain.PriceObservation) []domain.ConvertedPrice {
	out := make([]domain.ConvertedPrice, len(prices))
	for i, obs := range prices {
		out[i] = p.ConvertOne(obs)
	}
	return out
}

// Run validates the price rows and converts them
func (p *Pipeline) Run(prices []domain.PriceObservation) ([]domain.ConvertedPrice, error) {
	if err := ValidatePrices(prices); err != nil {
		return nil, err
	}
	return p.Convert(prices), nil
}

// ValidatePrices checks the price table for rows that cannot be converted
// meaningfully: empty pair ids, missing timestamps and non-finite prices.
func ValidatePrices(prices []domain.PriceObservation) error {
	var faults domain.Faults
	for i, obs := range prices {
		if obs.PairID == "" {
			faults.Add(tablePrices, i, "pair_id", "empty pair id", nil)
		}
		if obs.Timestamp.IsZero() {
			faults.Add(tablePrices, i, "timestamp", "missing timestamp", nil)
		}
		if math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) {
			faults.Add(tablePrices, i, "price", "not a finite number", obs.Price)
		}
	}
	return faults.Err()
}

// Summary counts results by status
type Summary struct {
	Total    int                   `json:"total"`
	ByStatus map[domain.Status]int `json:"by_status"`
}

// Summarize counts the conversion results by status
func Summarize(results []domain.ConvertedPrice) Summary {
	s := Summary{Total: len(results), ByStatus: make(map[domain.Status]int)}
	for _, r := range results {
		s.ByStatus[r.Status]++
	}
	return s
}

// joinFaults merges data quality errors; any other error wins as is
func joinFaults(errs ...error) error {
	var merged domain.Faults
	for _, err := range errs {
		if err == nil {
			continue
		}
		var dq *domain.DataQualityError
		if !errors.As(err, &dq) {
			return err
		}
		merged = append(merged, dq.Faults...)
	}
	return merged.Err()
}
