package exporter

import (
	"fmt"
	"sort"
	"time"

	"pricecalc/pkg/contracts/domain"
)

// Layout selects the shape of the stdev result table
type Layout string

const (
	// LayoutLong is one row per (security_id, snap_time, price_type)
	LayoutLong Layout = "long"
	// LayoutWide is one row per (security_id, snap_time) with a column per price type
	LayoutWide Layout = "wide"
)

// IsValid reports whether the layout is known
func (l Layout) IsValid() bool {
	return l == LayoutLong || l == LayoutWide
}

var (
	// RatesHeader is the column order of the rates result table
	RatesHeader = []string{"security_id", "pair_id", "timestamp", "original_price", "final_price", "status"}
	// StdevLongHeader is the column order of the long stdev result table
	StdevLongHeader = []string{"security_id", "snap_time", "price_type", "stdev", "status"}
	// StdevWideHeader is the column order of the wide stdev result table
	StdevWideHeader = []string{"security_id", "snap_time", "bid_std", "mid_std", "ask_std"}
)

// wideOrder is the column order of the wide layout
var wideOrder = []domain.PriceType{domain.PriceTypeBid, domain.PriceTypeMid, domain.PriceTypeAsk}

// RatesRecords renders converted prices in input order
func RatesRecords(results []domain.ConvertedPrice) [][]string {
	records := make([][]string, 0, len(results))
	for _, r := range results {
		records = append(records, []string{
			r.SecurityID,
			r.PairID,
			formatTime(r.Timestamp),
			formatFloat(r.OriginalPrice),
			formatOptional(r.FinalPrice),
			r.Status.String(),
		})
	}
	return records
}

// StdevHeader returns the header for a layout
func StdevHeader(layout Layout) []string {
	if layout == LayoutWide {
		return StdevWideHeader
	}
	return StdevLongHeader
}

// StdevRecords renders stdev results in the requested layout. The long
// layout keeps the result order; the wide layout is ordered by
// security_id then snap_time and leaves a cell empty unless its status is
// OK.
func StdevRecords(results []domain.RollingStdev, layout Layout) ([][]string, error) {
	switch layout {
	case LayoutLong, "":
		return stdevLong(results), nil
	case LayoutWide:
		return stdevWide(results), nil
	default:
		return nil, fmt.Errorf("unknown stdev layout: %s", layout)
	}
}

func stdevLong(results []domain.RollingStdev) [][]string {
	records := make([][]string, 0, len(results))
	for _, r := range results {
		records = append(records, []string{
			r.SecurityID,
			formatTime(r.SnapTime),
			string(r.PriceType),
			formatOptional(r.Stdev),
			r.Status.String(),
		})
	}
	return records
}

type wideKey struct {
	security string
	snap     time.Time
}

func stdevWide(results []domain.RollingStdev) [][]string {
	cells := make(map[wideKey]map[domain.PriceType]*float64)
	keys := make([]wideKey, 0)

	for _, r := range results {
		k := wideKey{security: r.SecurityID, snap: r.SnapTime.UTC()}
		row, ok := cells[k]
		if !ok {
			row = make(map[domain.PriceType]*float64, len(wideOrder))
			cells[k] = row
			keys = append(keys, k)
		}
		if r.Status == domain.StatusOK {
			row[r.PriceType] = r.Stdev
		}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].security != keys[j].security {
			return keys[i].security < keys[j].security
		}
		return keys[i].snap.Before(keys[j].snap)
	})

	records := make([][]string, 0, len(keys))
	for _, k := range keys {
		record := []string{k.security, formatTime(k.snap)}
		for _, pt := range wideOrder {
			record = append(record, formatOptional(cells[k][pt]))
		}
		records = append(records, record)
	}
	return records
}
