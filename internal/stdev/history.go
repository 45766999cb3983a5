package stdev

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"pricecalc/pkg/contracts/domain"
)

const tableSnaps = "security_snaps"

const (
	// DefaultWindow is the number of contiguous snaps per standard deviation
	DefaultWindow = 20
	// DefaultStep is the spacing of the snap grid
	DefaultStep = time.Hour
	// MinWindow is the smallest window with a defined sample stdev
	MinWindow = 2
)

// Options configures the rolling window
type Options struct {
	Window int
	Step   time.Duration
}

// DefaultOptions returns the 20 x 1h configuration
func DefaultOptions() Options {
	return Options{Window: DefaultWindow, Step: DefaultStep}
}

// Validate checks the window parameters
func (o Options) Validate() error {
	var faults domain.Faults
	if o.Window < MinWindow {
		faults.Add(tableParameters, -1, "window", fmt.Sprintf("window must hold at least %d snaps", MinWindow), o.Window)
	}
	if o.Step <= 0 {
		faults.Add(tableParameters, -1, "step", "step must be positive", o.Step.String())
	}
	return faults.Err()
}

// History is the immutable, indexed observation set of one run
type History struct {
	opts       Options
	series     map[string]map[int64]domain.SecuritySnap
	securities []string
	rows       int
	first      time.Time
	last       time.Time
	digest     uint64
}

// NewHistory indexes snaps by security and snap time. Snap times must be
// aligned to the step and unique per security.
func NewHistory(snaps []domain.SecuritySnap, opts Options) (*History, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var faults domain.Faults
	series := make(map[string]map[int64]domain.SecuritySnap)

	for i, s := range snaps {
		if s.SecurityID == "" {
			faults.Add(tableSnaps, i, "security_id", "empty security id", nil)
			continue
		}
		if s.SnapTime.IsZero() {
			faults.Add(tableSnaps, i, "snap_time", "missing snap time", nil)
			continue
		}
		if !aligned(s.SnapTime, opts.Step) {
			faults.Add(tableSnaps, i, "snap_time",
				fmt.Sprintf("snap time is not aligned to %s", opts.Step), s.SnapTime)
			continue
		}

		bySnap, ok := series[s.SecurityID]
		if !ok {
			bySnap = make(map[int64]domain.SecuritySnap)
			series[s.SecurityID] = bySnap
		}
		key := s.SnapTime.UnixNano()
		if _, dup := bySnap[key]; dup {
			faults.Add(tableSnaps, i, "snap_time", "duplicate snap for security", s.SnapTime)
			continue
		}
		bySnap[key] = s
	}

	if err := faults.Err(); err != nil {
		return nil, err
	}

	securities := make([]string, 0, len(series))
	for id := range series {
		securities = append(securities, id)
	}
	sort.Strings(securities)

	h := &History{
		opts:       opts,
		series:     series,
		securities: securities,
		rows:       len(snaps),
	}
	for _, bySnap := range series {
		for _, s := range bySnap {
			if h.first.IsZero() || s.SnapTime.Before(h.first) {
				h.first = s.SnapTime.UTC()
			}
			if s.SnapTime.After(h.last) {
				h.last = s.SnapTime.UTC()
			}
		}
	}
	h.digest = h.fingerprint()
	return h, nil
}

// Options returns the window configuration
func (h *History) Options() Options {
	return h.opts
}

// Securities returns every security id in ascending order
func (h *History) Securities() []string {
	return append([]string(nil), h.securities...)
}

// Rows returns the number of indexed snaps
func (h *History) Rows() int {
	return h.rows
}

// Bounds returns the earliest and latest snap time of any security. ok is
// false for an empty history.
func (h *History) Bounds() (first, last time.Time, ok bool) {
	if len(h.series) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return h.first, h.last, true
}

// Has reports whether the security has any observation
func (h *History) Has(securityID string) bool {
	_, ok := h.series[securityID]
	return ok
}

// Lookup returns the observed value of a price type at t
func (h *History) Lookup(securityID string, pt domain.PriceType, t time.Time) (float64, bool) {
	snap, ok := h.series[securityID][t.UnixNano()]
	if !ok {
		return 0, false
	}
	return snap.Value(pt)
}

// OnGrid reports whether t is aligned to the step
func (h *History) OnGrid(t time.Time) bool {
	return aligned(t, h.opts.Step)
}

// At computes the rolling stdev for one security, price type and snap time
// from the observation set alone. A snap time that is not aligned to the
// step can never be contiguous and yields INSUFFICIENT_DATA.
func (h *History) At(securityID string, pt domain.PriceType, snap time.Time) domain.RollingStdev {
	result := domain.RollingStdev{
		SecurityID: securityID,
		SnapTime:   snap.UTC(),
		PriceType:  pt,
		Status:     domain.StatusInsufficientData,
	}
	if !aligned(snap, h.opts.Step) {
		return result
	}

	values := make([]float64, 0, h.opts.Window)
	first := snap.Add(-time.Duration(h.opts.Window-1) * h.opts.Step)
	for t := first; !t.After(snap); t = t.Add(h.opts.Step) {
		v, ok := h.Lookup(securityID, pt, t)
		if !ok {
			return result
		}
		values = append(values, v)
	}

	if sd, ok := SampleStdev(values); ok {
		result.Stdev = domain.Float64Ptr(sd)
		result.Status = domain.StatusOK
	}
	return result
}

// Fingerprint identifies the observation set independently of input order
func (h *History) Fingerprint() uint64 {
	return h.digest
}

func (h *History) fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}

	writeUint(uint64(h.opts.Window))
	writeUint(uint64(h.opts.Step))
	for _, id := range h.securities {
		_, _ = d.WriteString(id)
		bySnap := h.series[id]
		keys := make([]int64, 0, len(bySnap))
		for k := range bySnap {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			s := bySnap[k]
			writeUint(uint64(k))
			writeUint(math.Float64bits(s.Bid))
			writeUint(math.Float64bits(s.Mid))
			writeUint(math.Float64bits(s.Ask))
		}
	}
	return d.Sum64()
}
