package domain

import (
	"math"
	"time"
)

// PriceType selects one of the quoted price columns of a SecuritySnap
type PriceType string

const (
	PriceTypeBid PriceType = "bid"
	PriceTypeMid PriceType = "mid"
	PriceTypeAsk PriceType = "ask"
)

// PriceTypes lists the price types in output order (lexical, so that
// result rows sort by their string keys).
var PriceTypes = []PriceType{PriceTypeAsk, PriceTypeBid, PriceTypeMid}

// ParsePriceType parses a price type name
func ParsePriceType(s string) (PriceType, bool) {
	switch PriceType(s) {
	case PriceTypeBid, PriceTypeMid, PriceTypeAsk:
		return PriceType(s), true
	default:
		return "", false
	}
}

// SecuritySnap is one hourly sample of a security. A NaN price means the
// value for that price type was not observed.
type SecuritySnap struct {
	SecurityID string    `json:"security_id" db:"security_id" validate:"required"`
	SnapTime   time.Time `json:"snap_time" db:"snap_time" validate:"required"`
	Bid        float64   `json:"bid" db:"bid"`
	Mid        float64   `json:"mid" db:"mid"`
	Ask        float64   `json:"ask" db:"ask"`
}

// Value returns the price for the given type and whether it was observed
func (s SecuritySnap) Value(pt PriceType) (float64, bool) {
	var v float64
	switch pt {
	case PriceTypeBid:
		v = s.Bid
	case PriceTypeMid:
		v = s.Mid
	case PriceTypeAsk:
		v = s.Ask
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// RollingStdev is the result for one (security, price type, snap time).
// Stdev is non-nil iff Status is StatusOK.
type RollingStdev struct {
	SecurityID string    `json:"security_id" db:"security_id"`
	SnapTime   time.Time `json:"snap_time" db:"snap_time"`
	PriceType  PriceType `json:"price_type" db:"price_type"`
	Stdev      *float64  `json:"stdev" db:"stdev"`
	Status     Status    `json:"status" db:"status"`
}

// IsValid checks the stdev / status invariant
func (r RollingStdev) IsValid() bool {
	if r.Status != StatusOK && r.Status != StatusInsufficientData {
		return false
	}
	return (r.Stdev != nil) == (r.Status == StatusOK)
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}
