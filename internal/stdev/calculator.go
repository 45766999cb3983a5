package stdev

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"pricecalc/pkg/contracts/domain"
)

// Calculator sweeps a snap grid over a History
type Calculator struct {
	history *History
	workers int
	logger  *slog.Logger
}

// NewCalculator creates a calculator. workers > 1 computes securities in
// parallel; output order does not depend on it.
func NewCalculator(history *History, workers int, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Calculator{history: history, workers: workers, logger: logger}
}

// Calculate returns one result per (security, price type, snap time),
// ordered by security id, then price type, then snap time. An empty
// securities list means every security in the history.
func (c *Calculator) Calculate(ctx context.Context, grid Grid, securities []string) ([]domain.RollingStdev, error) {
	opts := c.history.Options()
	if grid.Step != opts.Step {
		return nil, fmt.Errorf("grid step %s does not match history step %s", grid.Step, opts.Step)
	}
	if len(securities) == 0 {
		securities = c.history.Securities()
	} else {
		securities = uniqueSorted(securities)
	}

	start := time.Now()
	perSecurity := make([][]domain.RollingStdev, len(securities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, id := range securities {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !c.history.Has(id) {
				c.logger.WarnContext(gctx, "security has no observations", "security_id", id)
			}
			perSecurity[i] = c.sweepSecurity(id, grid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("calculate rolling stdev: %w", err)
	}

	results := make([]domain.RollingStdev, 0, len(securities)*len(domain.PriceTypes)*grid.Len())
	for _, rows := range perSecurity {
		results = append(results, rows...)
	}

	c.logger.DebugContext(ctx, "rolling stdev sweep completed",
		"securities", len(securities),
		"snaps", grid.Len(),
		"results", len(results),
		"workers", c.workers,
		"duration", time.Since(start).String(),
	)
	return results, nil
}

// sweepSecurity walks every price type of one security through the grid
func (c *Calculator) sweepSecurity(securityID string, grid Grid) []domain.RollingStdev {
	out := make([]domain.RollingStdev, 0, len(domain.PriceTypes)*grid.Len())
	acc := NewAccumulator(c.history.Options().Window)
	for _, pt := range domain.PriceTypes {
		acc.Reset()
		out = c.sweep(out, acc, securityID, pt, grid)
	}
	return out
}

// sweep starts Window-1 steps before the grid so that history preceding the
// grid start can complete the first windows.
func (c *Calculator) sweep(out []domain.RollingStdev, acc *Accumulator, securityID string, pt domain.PriceType, grid Grid) []domain.RollingStdev {
	opts := c.history.Options()
	first := grid.Start.Add(-time.Duration(opts.Window-1) * opts.Step)

	for t := first; !t.After(grid.End); t = t.Add(opts.Step) {
		if v, ok := c.history.Lookup(securityID, pt, t); ok {
			acc.Push(v)
		} else {
			acc.Reset()
		}
		if t.Before(grid.Start) {
			continue
		}

		r := domain.RollingStdev{
			SecurityID: securityID,
			SnapTime:   t,
			PriceType:  pt,
			Status:     domain.StatusInsufficientData,
		}
		if acc.Full() {
			if sd, ok := acc.Stdev(); ok {
				r.Stdev = domain.Float64Ptr(sd)
				r.Status = domain.StatusOK
			}
		}
		out = append(out, r)
	}
	return out
}

// uniqueSorted returns a sorted copy of ids without duplicates
func uniqueSorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}

// Summary counts results by status
type Summary struct {
	Total    int                   `json:"total"`
	ByStatus map[domain.Status]int `json:"by_status"`
}

// Summarize counts stdev results by status
func Summarize(results []domain.RollingStdev) Summary {
	s := Summary{Total: len(results), ByStatus: make(map[domain.Status]int)}
	for _, r := range results {
		s.ByStatus[r.Status]++
	}
	return s
}
