package rates

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecalc/pkg/contracts/domain"
)

var day = time.Date(2021, 11, 20, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func eurusdRules() []domain.CurrencyPairRule {
	return []domain.CurrencyPairRule{
		{PairID: "EURUSD", RequiresConversion: true, ConversionFactor: 1.1},
		{PairID: "GBPUSD", RequiresConversion: false},
	}
}

func TestResolver(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		r, err := NewResolver(eurusdRules())
		require.NoError(t, err)
		assert.Equal(t, 2, r.Len())

		rule, ok := r.Resolve("EURUSD")
		require.True(t, ok)
		assert.Equal(t, 1.1, rule.ConversionFactor)

		_, ok = r.Resolve("USDJPY")
		assert.False(t, ok)
	})

	tests := []struct {
		name  string
		rules []domain.CurrencyPairRule
		field string
	}{
		{
			name: "duplicate pair",
			rules: []domain.CurrencyPairRule{
				{PairID: "EURUSD", RequiresConversion: false},
				{PairID: "EURUSD", RequiresConversion: true, ConversionFactor: 2},
			},
			field: "pair_id",
		},
		{
			name:  "zero factor",
			rules: []domain.CurrencyPairRule{{PairID: "EURUSD", RequiresConversion: true}},
			field: "conversion_factor",
		},
		{
			name:  "negative factor",
			rules: []domain.CurrencyPairRule{{PairID: "EURUSD", RequiresConversion: true, ConversionFactor: -1}},
			field: "conversion_factor",
		},
		{
			name:  "nan factor",
			rules: []domain.CurrencyPairRule{{PairID: "EURUSD", RequiresConversion: true, ConversionFactor: math.NaN()}},
			field: "conversion_factor",
		},
		{
			name:  "empty pair",
			rules: []domain.CurrencyPairRule{{PairID: ""}},
			field: "pair_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.rules)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrDataQuality))

			var dq *domain.DataQualityError
			require.True(t, errors.As(err, &dq))
			require.Len(t, dq.Faults, 1)
			assert.Equal(t, tt.field, dq.Faults[0].Field)
		})
	}

	t.Run("zero factor is fine without conversion", func(t *testing.T) {
		_, err := NewResolver([]domain.CurrencyPairRule{{PairID: "EURUSD", RequiresConversion: false}})
		assert.NoError(t, err)
	})
}

func TestMatcher(t *testing.T) {
	spots := []domain.SpotRateObservation{
		{PairID: "EURUSD", Timestamp: at(10, 15), SpotMidRate: 1.25},
		{PairID: "EURUSD", Timestamp: at(9, 45), SpotMidRate: 1.2},
		{PairID: "EURUSD", Timestamp: at(12, 0), SpotMidRate: 1.3},
		{PairID: "GBPUSD", Timestamp: at(10, 29), SpotMidRate: 9.9},
	}

	m, err := NewMatcher(spots, time.Hour, DuplicateFirstSeen)
	require.NoError(t, err)

	tests := []struct {
		name  string
		pair  string
		at    time.Time
		found bool
		rate  float64
	}{
		{"latest inside window wins", "EURUSD", at(10, 30), true, 1.25},
		{"rate at query instant is included", "EURUSD", at(10, 15), true, 1.25},
		{"rate exactly one window back is excluded", "EURUSD", at(10, 45), true, 1.25},
		{"only older rate left", "EURUSD", at(10, 14), true, 1.2},
		{"window boundary excludes", "EURUSD", at(11, 15), false, 0},
		{"just inside boundary", "EURUSD", at(11, 14), true, 1.25},
		{"before any rate", "EURUSD", at(9, 44), false, 0},
		{"future rates are never used", "EURUSD", at(11, 59), false, 0},
		{"other pair isolated", "GBPUSD", at(10, 30), true, 9.9},
		{"unknown pair", "USDJPY", at(10, 30), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Match(tt.pair, tt.at)
			require.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.rate, got.SpotMidRate)
				assert.Equal(t, tt.pair, got.PairID)
			}
		})
	}
}

func TestMatcherBoundaryExact(t *testing.T) {
	spots := []domain.SpotRateObservation{
		{PairID: "EURUSD", Timestamp: at(9, 30), SpotMidRate: 1.1},
	}
	m, err := NewMatcher(spots, time.Hour, DuplicateFirstSeen)
	require.NoError(t, err)

	_, ok := m.Match("EURUSD", at(10, 30))
	assert.False(t, ok, "rate at t-1h must be excluded")

	got, ok := m.Match("EURUSD", at(9, 30))
	require.True(t, ok, "rate at t must be included")
	assert.Equal(t, 1.1, got.SpotMidRate)
}

func TestMatcherDuplicates(t *testing.T) {
	spots := []domain.SpotRateObservation{
		{PairID: "EURUSD", Timestamp: at(10, 0), SpotMidRate: 1.5},
		{PairID: "EURUSD", Timestamp: at(10, 0), SpotMidRate: 1.6},
	}

	t.Run("first seen", func(t *testing.T) {
		m, err := NewMatcher(spots, time.Hour, DuplicateFirstSeen)
		require.NoError(t, err)
		assert.Equal(t, 1, m.Duplicates())

		got, ok := m.Match("EURUSD", at(10, 10))
		require.True(t, ok)
		assert.Equal(t, 1.5, got.SpotMidRate)
	})

	t.Run("reject", func(t *testing.T) {
		_, err := NewMatcher(spots, time.Hour, DuplicateReject)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDataQuality)
	})

	t.Run("bad options", func(t *testing.T) {
		_, err := NewMatcher(spots, 0, DuplicateFirstSeen)
		assert.Error(t, err)
		_, err = NewMatcher(spots, time.Hour, DuplicatePolicy("last"))
		assert.Error(t, err)
	})
}

func TestConvert(t *testing.T) {
	obs := domain.PriceObservation{PairID: "EURUSD", SecurityID: "S1", Timestamp: at(10, 30), Price: 110}
	convRule := &domain.CurrencyPairRule{PairID: "EURUSD", RequiresConversion: true, ConversionFactor: 1.1}
	plainRule := &domain.CurrencyPairRule{PairID: "EURUSD", RequiresConversion: false}
	spot := &domain.SpotRateObservation{PairID: "EURUSD", Timestamp: at(10, 15), SpotMidRate: 1.25}

	tests := []struct {
		name   string
		rule   *domain.CurrencyPairRule
		spot   *domain.SpotRateObservation
		status domain.Status
		final  float64
	}{
		{"no rule", nil, spot, domain.StatusNoRule, 0},
		{"no conversion needed", plainRule, nil, domain.StatusOK, 110},
		{"conversion with spot", convRule, spot, domain.StatusOK, 101.25},
		{"conversion without spot", convRule, nil, domain.StatusInsufficientData, 0},
		{"zero factor never divides", &domain.CurrencyPairRule{PairID: "EURUSD", RequiresConversion: true}, spot, domain.StatusInsufficientData, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(obs, tt.rule, tt.spot)
			assert.Equal(t, tt.status, got.Status)
			assert.True(t, got.IsValid())
			assert.Equal(t, obs.Price, got.OriginalPrice)
			assert.Equal(t, "S1", got.SecurityID)
			if tt.status == domain.StatusOK {
				require.NotNil(t, got.FinalPrice)
				assert.InDelta(t, tt.final, *got.FinalPrice, 1e-9)
			} else {
				assert.Nil(t, got.FinalPrice)
			}
		})
	}
}

func TestPipeline(t *testing.T) {
	spots := []domain.SpotRateObservation{
		{PairID: "EURUSD", Timestamp: at(9, 45), SpotMidRate: 1.2},
		{PairID: "EURUSD", Timestamp: at(10, 15), SpotMidRate: 1.25},
	}
	p, err := NewPipeline(eurusdRules(), spots, DefaultOptions())
	require.NoError(t, err)

	prices := []domain.PriceObservation{
		{PairID: "EURUSD", Timestamp: at(10, 30), Price: 110},
		{PairID: "GBPUSD", Timestamp: at(3, 0), Price: 42},
		{PairID: "USDJPY", Timestamp: at(10, 30), Price: 150},
		{PairID: "EURUSD", Timestamp: at(14, 0), Price: 110},
		{PairID: "EURUSD", Timestamp: at(9, 50), Price: 55},
	}

	got, err := p.Run(prices)
	require.NoError(t, err)
	require.Len(t, got, len(prices))

	// row order is preserved
	for i := range prices {
		assert.Equal(t, prices[i].PairID, got[i].PairID)
		assert.Equal(t, prices[i].Timestamp, got[i].Timestamp)
		assert.True(t, got[i].IsValid())
	}

	assert.Equal(t, domain.StatusOK, got[0].Status)
	assert.InDelta(t, 101.25, *got[0].FinalPrice, 1e-9)

	assert.Equal(t, domain.StatusOK, got[1].Status)
	assert.Equal(t, 42.0, *got[1].FinalPrice)

	assert.Equal(t, domain.StatusNoRule, got[2].Status)
	assert.Equal(t, domain.StatusInsufficientData, got[3].Status)

	assert.Equal(t, domain.StatusOK, got[4].Status)
	assert.InDelta(t, 55/1.1+1.2, *got[4].FinalPrice, 1e-9)

	summary := Summarize(got)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 3, summary.ByStatus[domain.StatusOK])
	assert.Equal(t, 1, summary.ByStatus[domain.StatusNoRule])
	assert.Equal(t, 1, summary.ByStatus[domain.StatusInsufficientData])
}

func TestPipelineFaults(t *testing.T) {
	t.Run("faults from both tables are joined", func(t *testing.T) {
		rules := []domain.CurrencyPairRule{{PairID: "EURUSD", RequiresConversion: true, ConversionFactor: 0}}
		spots := []domain.SpotRateObservation{{PairID: "EURUSD", Timestamp: at(1, 0), SpotMidRate: math.Inf(1)}}

		_, err := NewPipeline(rules, spots, DefaultOptions())
		var dq *domain.DataQualityError
		require.ErrorAs(t, err, &dq)
		assert.Len(t, dq.Faults, 2)
	})

	t.Run("invalid price rows", func(t *testing.T) {
		p, err := NewPipeline(eurusdRules(), nil, DefaultOptions())
		require.NoError(t, err)

		_, err = p.Run([]domain.PriceObservation{
			{PairID: "EURUSD", Timestamp: at(1, 0), Price: math.NaN()},
			{PairID: "", Timestamp: at(1, 0), Price: 1},
		})
		var dq *domain.DataQualityError
		require.ErrorAs(t, err, &dq)
		assert.Len(t, dq.Faults, 2)
		assert.Contains(t, err.Error(), "prices row 0")
	})
}
