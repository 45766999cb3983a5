package domain

import (
	"time"
)

// CurrencyPairRule is the reference row describing how prices quoted in a
// pair are converted.
type CurrencyPairRule struct {
	PairID             string  `json:"pair_id" db:"pair_id" validate:"required"`
	RequiresConversion bool    `json:"requires_conversion" db:"requires_conversion"`
	ConversionFactor   float64 `json:"conversion_factor" db:"conversion_factor"`
}

// PriceObservation is a raw price for a currency pair. SecurityID is
// optional and only carried through to the output.
type PriceObservation struct {
	PairID     string    `json:"pair_id" db:"pair_id" validate:"required"`
	SecurityID string    `json:"security_id,omitempty" db:"security_id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp" validate:"required"`
	Price      float64   `json:"price" db:"price"`
}

// SpotRateObservation is an FX spot mid rate for a pair at an instant
type SpotRateObservation struct {
	PairID      string    `json:"pair_id" db:"pair_id" validate:"required"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp" validate:"required"`
	SpotMidRate float64   `json:"spot_mid_rate" db:"spot_mid_rate"`
}

// ConvertedPrice is produced for every PriceObservation, in input order.
// FinalPrice is non-nil iff Status is StatusOK.
type ConvertedPrice struct {
	PairID        string    `json:"pair_id" db:"pair_id"`
	SecurityID    string    `json:"security_id,omitempty" db:"security_id"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	OriginalPrice float64   `json:"original_price" db:"original_price"`
	FinalPrice    *float64  `json:"final_price" db:"final_price"`
	Status        Status    `json:"status" db:"status"`
}

// IsValid checks the final price / status invariant
func (c ConvertedPrice) IsValid() bool {
	return c.Status.IsValid() && (c.FinalPrice != nil) == (c.Status == StatusOK)
}
