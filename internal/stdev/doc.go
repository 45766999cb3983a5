// Package stdev computes gap-aware rolling standard deviations of hourly
// security price snaps.
//
// For a security, a price type (bid, mid, ask) and a snap time T, the result
// is the sample standard deviation (n-1 denominator) of the Window values
// observed at T-(Window-1)*Step, ..., T-Step, T. If any of those instants has
// no observation the window is not contiguous and the result is
// INSUFFICIENT_DATA.
//
// # Components
//
//   - grid.go: Grid, the inclusive list of expected snap times
//   - history.go: History, the indexed observation set and the pure
//     point-in-time function History.At
//   - accumulator.go: Accumulator, rolling sums with eviction and reset,
//     used by the grid sweep
//   - calculator.go: Calculator, sweeps a grid for every security and price
//     type, optionally one security per worker
//
// History.At depends only on the observation set and the requested snap
// time, so any past hour can be recomputed on its own. The sweep in
// Calculator produces the same values (within floating point tolerance)
// in a single pass per series.
package stdev
