package stdev

import (
	"fmt"
	"time"

	"pricecalc/pkg/contracts/domain"
)

// tableParameters names faults in run parameters rather than input rows
const tableParameters = "parameters"

// Grid is the inclusive sequence Start, Start+Step, ..., End
type Grid struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// NewGrid validates and builds a grid. Both bounds must be aligned to step
// and start must not be after end.
func NewGrid(start, end time.Time, step time.Duration) (Grid, error) {
	var faults domain.Faults
	if step <= 0 {
		faults.Add(tableParameters, -1, "step", "grid step must be positive", step.String())
		return Grid{}, faults.Err()
	}
	if !aligned(start, step) {
		faults.Add(tableParameters, -1, "start", fmt.Sprintf("not aligned to %s", step), start.Format(time.RFC3339))
	}
	if !aligned(end, step) {
		faults.Add(tableParameters, -1, "end", fmt.Sprintf("not aligned to %s", step), end.Format(time.RFC3339))
	}
	if start.After(end) {
		faults.Add(tableParameters, -1, "start", "grid start is after end", start.Format(time.RFC3339))
	}
	if err := faults.Err(); err != nil {
		return Grid{}, err
	}
	return Grid{Start: start.UTC(), End: end.UTC(), Step: step}, nil
}

// Len returns the number of snap times in the grid
func (g Grid) Len() int {
	return int(g.End.Sub(g.Start)/g.Step) + 1
}

// Times enumerates every snap time in ascending order
func (g Grid) Times() []time.Time {
	times := make([]time.Time, 0, g.Len())
	for t := g.Start; !t.After(g.End); t = t.Add(g.Step) {
		times = append(times, t)
	}
	return times
}

// Contains reports whether t is one of the grid's snap times
func (g Grid) Contains(t time.Time) bool {
	if t.Before(g.Start) || t.After(g.End) {
		return false
	}
	return t.Sub(g.Start)%g.Step == 0
}

// Sub returns the part of the grid between from and to, both inclusive.
// The bounds must be grid members.
func (g Grid) Sub(from, to time.Time) (Grid, error) {
	if !g.Contains(from) || !g.Contains(to) {
		return Grid{}, fmt.Errorf("sub-range %s..%s is outside the grid", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return NewGrid(from, to, g.Step)
}

func aligned(t time.Time, step time.Duration) bool {
	return t.Truncate(step).Equal(t)
}
