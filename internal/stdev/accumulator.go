package stdev

import "math"

// Accumulator keeps the running sum and sum of squares of the last size
// pushed values. Values are stored shifted by the first value seen after a
// reset, which keeps the sum-of-squares formula well conditioned for price
// levels far from zero. The sums are rebuilt from the buffer every size
// pushes so rounding error cannot grow without bound.
type Accumulator struct {
	size  int
	buf   []float64 // shifted values, ring buffer
	head  int       // index of the oldest value
	count int

	shift float64
	sum   float64
	sumSq float64

	sinceRebuild int
}

// NewAccumulator returns an empty accumulator for windows of size values
func NewAccumulator(size int) *Accumulator {
	if size < 1 {
		size = 1
	}
	return &Accumulator{size: size, buf: make([]float64, size)}
}

// Reset drops every value; used when a gap breaks contiguity
func (a *Accumulator) Reset() {
	a.head = 0
	a.count = 0
	a.shift = 0
	a.sum = 0
	a.sumSq = 0
	a.sinceRebuild = 0
}

// Push admits v, evicting the oldest value once the window is full
func (a *Accumulator) Push(v float64) {
	if a.count == 0 {
		a.shift = v
	}
	d := v - a.shift

	if a.count == a.size {
		old := a.buf[a.head]
		a.sum -= old
		a.sumSq -= old * old
		a.buf[a.head] = d
		a.head = (a.head + 1) % a.size
	} else {
		a.buf[(a.head+a.count)%a.size] = d
		a.count++
	}
	a.sum += d
	a.sumSq += d * d

	a.sinceRebuild++
	if a.sinceRebuild >= a.size {
		a.rebuild()
	}
}

// rebuild re-centres the buffer on its oldest value and recomputes the sums
func (a *Accumulator) rebuild() {
	if a.count == 0 {
		return
	}
	delta := a.buf[a.head]
	a.shift += delta
	a.sum = 0
	a.sumSq = 0
	for i := 0; i < a.count; i++ {
		j := (a.head + i) % a.size
		a.buf[j] -= delta
		a.sum += a.buf[j]
		a.sumSq += a.buf[j] * a.buf[j]
	}
	a.sinceRebuild = 0
}

// Len returns the number of values currently held
func (a *Accumulator) Len() int {
	return a.count
}

// Full reports whether the window holds size values
func (a *Accumulator) Full() bool {
	return a.count == a.size
}

// Stdev returns the sample standard deviation of the held values. It
// reports false for fewer than two values.
func (a *Accumulator) Stdev() (float64, bool) {
	if a.count < 2 {
		return 0, false
	}
	n := float64(a.count)
	variance := (a.sumSq - a.sum*a.sum/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance), true
}
