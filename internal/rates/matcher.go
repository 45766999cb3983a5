package rates

import (
	"fmt"
	"math"
	"sort"
	"time"

	"pricecalc/pkg/contracts/domain"
)

const tableSpotRates = "spot_rates"

// DefaultSpotWindow is how far back a spot rate may lie behind a price
const DefaultSpotWindow = time.Hour

// DuplicatePolicy decides what happens when a pair has two spot rates
// stamped at the same instant.
type DuplicatePolicy string

const (
	// DuplicateFirstSeen keeps the rate that appears first in the input
	DuplicateFirstSeen DuplicatePolicy = "first"
	// DuplicateReject treats duplicate timestamps as a data quality fault
	DuplicateReject DuplicatePolicy = "reject"
)

// IsValid reports whether p is a known policy
func (p DuplicatePolicy) IsValid() bool {
	return p == DuplicateFirstSeen || p == DuplicateReject
}

// Matcher answers as-of queries against spot rates grouped by pair. Each
// pair's rates are kept in ascending timestamp order with unique
// timestamps, so a query is a single binary search.
type Matcher struct {
	window     time.Duration
	byPair     map[string][]domain.SpotRateObservation
	duplicates int
}

// NewMatcher groups and orders the spot rates.
//
// Parameters:
//   - spots: spot rate rows in input order
//   - window: look-back length, rates in (t - window, t] are candidates
//   - policy: tie handling for equal timestamps within a pair
func NewMatcher(spots []domain.SpotRateObservation, window time.Duration, policy DuplicatePolicy) (*Matcher, error) {
	if window <= 0 {
		return nil, fmt.Errorf("spot window must be positive, got %s", window)
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("unknown duplicate policy %q", policy)
	}

	var faults domain.Faults
	byPair := make(map[string][]domain.SpotRateObservation)
	firstRow := make(map[string]map[int64]int)

	for i, s := range spots {
		if s.PairID == "" {
			faults.Add(tableSpotRates, i, "pair_id", "empty pair id", nil)
			continue
		}
		if s.Timestamp.IsZero() {
			faults.Add(tableSpotRates, i, "timestamp", "missing timestamp", nil)
			continue
		}
		if math.IsNaN(s.SpotMidRate) || math.IsInf(s.SpotMidRate, 0) {
			faults.Add(tableSpotRates, i, "spot_mid_rate", "not a finite number", s.SpotMidRate)
			continue
		}

		seen, ok := firstRow[s.PairID]
		if !ok {
			seen = make(map[int64]int)
			firstRow[s.PairID] = seen
		}
		key := s.Timestamp.UnixNano()
		if first, dup := seen[key]; dup {
			if policy == DuplicateReject {
				faults.Add(tableSpotRates, i, "timestamp",
					fmt.Sprintf("duplicate timestamp for pair (first seen at row %d)", first), s.Timestamp)
			}
			continue
		}
		seen[key] = i
		byPair[s.PairID] = append(byPair[s.PairID], s)
	}

	if err := faults.Err(); err != nil {
		return nil, err
	}

	kept := 0
	for _, series := range byPair {
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
		kept += len(series)
	}

	return &Matcher{
		window:     window,
		byPair:     byPair,
		duplicates: len(spots) - kept,
	}, nil
}

// Match returns the latest spot rate for pairID stamped within
// (at - window, at], or false when there is none.
func (m *Matcher) Match(pairID string, at time.Time) (domain.SpotRateObservation, bool) {
	series := m.byPair[pairID]
	if len(series) == 0 {
		return domain.SpotRateObservation{}, false
	}

	// first rate strictly after at; its predecessor is the latest <= at
	i := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp.After(at)
	})
	if i == 0 {
		return domain.SpotRateObservation{}, false
	}

	candidate := series[i-1]
	if !candidate.Timestamp.After(at.Add(-m.window)) {
		return domain.SpotRateObservation{}, false
	}
	return candidate, true
}

// Window returns the configured look-back length
func (m *Matcher) Window() time.Duration {
	return m.window
}

// Duplicates returns how many spot rows were dropped as same-instant
// duplicates under DuplicateFirstSeen.
func (m *Matcher) Duplicates() int {
	return m.duplicates
}
