package rates

import (
	"pricecalc/pkg/contracts/domain"
)

// Convert applies the conversion rule to one price row. A nil rule means
// the pair is unknown; a nil spot means no spot rate fell inside the
// window. Convert never divides by a non-positive factor: such a rule
// yields INSUFFICIENT_DATA.
func Convert(obs domain.PriceObservation, rule *domain.CurrencyPairRule, spot *domain.SpotRateObservation) domain.ConvertedPrice {
	out := domain.ConvertedPrice{
		PairID:        obs.PairID,
		SecurityID:    obs.SecurityID,
		Timestamp:     obs.Timestamp,
		OriginalPrice: obs.Price,
	}

	switch {
	case rule == nil:
		out.Status = domain.StatusNoRule
	case !rule.RequiresConversion:
		out.Status = domain.StatusOK
		out.FinalPrice = domain.Float64Ptr(obs.Price)
	case spot == nil || !validFactor(rule.ConversionFactor):
		out.Status = domain.StatusInsufficientData
	default:
		out.Status = domain.StatusOK
		out.FinalPrice = domain.Float64Ptr(obs.Price/rule.ConversionFactor + spot.SpotMidRate)
	}

	return out
}
