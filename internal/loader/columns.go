package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"pricecalc/pkg/contracts/domain"
)

// column aliases, first entry is the canonical name
var (
	colPairID             = []string{"pair_id", "ccy_pair"}
	colRequiresConversion = []string{"requires_conversion", "convert_price", "convert_prices"}
	colConversionFactor   = []string{"conversion_factor"}
	colTimestamp          = []string{"timestamp"}
	colPrice              = []string{"price"}
	colSecurityID         = []string{"security_id"}
	colSpotMidRate        = []string{"spot_mid_rate"}
	colSnapTime           = []string{"snap_time"}
	colBid                = []string{"bid"}
	colMid                = []string{"mid"}
	colAsk                = []string{"ask"}
)

// timeLayouts are tried in order; layouts without a zone are read as UTC
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// columnIndex resolves column positions by name for one table
type columnIndex struct {
	table string
	pos   map[string]int
}

func newColumnIndex(t *Table) columnIndex {
	pos := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	return columnIndex{table: t.Name, pos: pos}
}

func (c columnIndex) find(aliases []string) (int, bool) {
	for _, a := range aliases {
		if i, ok := c.pos[a]; ok {
			return i, true
		}
	}
	return -1, false
}

func (c columnIndex) require(aliases ...[]string) error {
	var missing []string
	for _, a := range aliases {
		if _, ok := c.find(a); !ok {
			missing = append(missing, a[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %s", c.table, strings.Join(missing, ", "))
	}
	return nil
}

// rowReader extracts typed cells from one record and records faults
type rowReader struct {
	cols   columnIndex
	record []string
	row    int
	faults *domain.Faults
}

func (r rowReader) cell(aliases []string) string {
	i, ok := r.cols.find(aliases)
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r rowReader) fault(aliases []string, message string, value interface{}) {
	r.faults.Add(r.cols.table, r.row, aliases[0], message, value)
}

func (r rowReader) str(aliases []string) string {
	v := r.cell(aliases)
	if v == "" {
		r.fault(aliases, "empty value", nil)
	}
	return v
}

func (r rowReader) float(aliases []string) float64 {
	v := r.cell(aliases)
	if v == "" {
		r.fault(aliases, "empty value", nil)
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fault(aliases, "not a number", v)
		return math.NaN()
	}
	return f
}

// optionalFloat reads a price cell where an empty or NaN cell means "not
// observed".
func (r rowReader) optionalFloat(aliases []string) float64 {
	v := r.cell(aliases)
	if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "null") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fault(aliases, "not a number", v)
		return math.NaN()
	}
	return f
}

func (r rowReader) boolean(aliases []string) bool {
	v := strings.ToLower(r.cell(aliases))
	switch v {
	case "true", "t", "1", "yes", "y":
		return true
	case "false", "f", "0", "no", "n":
		return false
	case "":
		r.fault(aliases, "empty value", nil)
	default:
		r.fault(aliases, "not a boolean", v)
	}
	return false
}

func (r rowReader) timestamp(aliases []string) time.Time {
	v := r.cell(aliases)
	if v == "" {
		r.fault(aliases, "empty value", nil)
		return time.Time{}
	}
	t, err := ParseTime(v)
	if err != nil {
		r.fault(aliases, err.Error(), v)
		return time.Time{}
	}
	return t
}

// ParseTime parses the timestamp layouts found in the input tables
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time: %s", s)
}

func mapRows(t *Table, required [][]string, fn func(r rowReader)) error {
	cols := newColumnIndex(t)
	if err := cols.require(required...); err != nil {
		return err
	}

	var faults domain.Faults
	for i, record := range t.Rows {
		fn(rowReader{cols: cols, record: record, row: i, faults: &faults})
	}
	return faults.Err()
}

// CurrencyPairs maps the currency pair reference table
func CurrencyPairs(t *Table) ([]domain.CurrencyPairRule, error) {
	out := make([]domain.CurrencyPairRule, 0, len(t.Rows))
	err := mapRows(t, [][]string{colPairID, colRequiresConversion}, func(r rowReader) {
		rule := domain.CurrencyPairRule{
			PairID:             r.str(colPairID),
			RequiresConversion: r.boolean(colRequiresConversion),
		}
		if rule.RequiresConversion {
			rule.ConversionFactor = r.float(colConversionFactor)
		} else if f := r.optionalFloat(colConversionFactor); !math.IsNaN(f) {
			rule.ConversionFactor = f
		}
		out = append(out, rule)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Prices maps the raw price table. security_id is optional.
func Prices(t *Table) ([]domain.PriceObservation, error) {
	out := make([]domain.PriceObservation, 0, len(t.Rows))
	err := mapRows(t, [][]string{colPairID, colTimestamp, colPrice}, func(r rowReader) {
		out = append(out, domain.PriceObservation{
			PairID:     r.str(colPairID),
			SecurityID: r.cell(colSecurityID),
			Timestamp:  r.timestamp(colTimestamp),
			Price:      r.float(colPrice),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SpotRates maps the spot mid rate table
func SpotRates(t *Table) ([]domain.SpotRateObservation, error) {
	out := make([]domain.SpotRateObservation, 0, len(t.Rows))
	err := mapRows(t, [][]string{colPairID, colTimestamp, colSpotMidRate}, func(r rowReader) {
		out = append(out, domain.SpotRateObservation{
			PairID:      r.str(colPairID),
			Timestamp:   r.timestamp(colTimestamp),
			SpotMidRate: r.float(colSpotMidRate),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SecuritySnaps maps the hourly security price table. Empty price cells
// become NaN, i.e. not observed for that price type.
func SecuritySnaps(t *Table) ([]domain.SecuritySnap, error) {
	out := make([]domain.SecuritySnap, 0, len(t.Rows))
	err := mapRows(t, [][]string{colSecurityID, colSnapTime, colBid, colMid, colAsk}, func(r rowReader) {
		out = append(out, domain.SecuritySnap{
			SecurityID: r.str(colSecurityID),
			SnapTime:   r.timestamp(colSnapTime),
			Bid:        r.optionalFloat(colBid),
			Mid:        r.optionalFloat(colMid),
			Ask:        r.optionalFloat(colAsk),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
