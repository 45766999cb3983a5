package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pricecalc/pkg/contracts/domain"
)

// Sink bulk-loads one run's results with COPY. Every row carries the run
// id so repeated runs never collide.
type Sink struct {
	pool   *pgxpool.Pool
	runID  string
	logger *slog.Logger
}

// NewSink creates a result sink for runID
func NewSink(pool *pgxpool.Pool, runID string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{pool: pool, runID: runID, logger: logger}
}

// RunID returns the run the sink writes under
func (s *Sink) RunID() string {
	return s.runID
}

// WriteRates copies converted prices; row_index keeps the input order
func (s *Sink) WriteRates(ctx context.Context, results []domain.ConvertedPrice) error {
	cols := []string{"run_id", "row_index", "security_id", "pair_id", "ts", "original_price", "final_price", "status"}
	src := pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
		r := results[i]
		return []any{s.runID, i, r.SecurityID, r.PairID, r.Timestamp, r.OriginalPrice, r.FinalPrice, string(r.Status)}, nil
	})
	return s.copy(ctx, tableRates, cols, src, len(results))
}

// WriteStdev copies rolling stdev results
func (s *Sink) WriteStdev(ctx context.Context, results []domain.RollingStdev) error {
	cols := []string{"run_id", "security_id", "snap_time", "price_type", "stdev", "status"}
	src := pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
		r := results[i]
		return []any{s.runID, r.SecurityID, r.SnapTime, string(r.PriceType), r.Stdev, string(r.Status)}, nil
	})
	return s.copy(ctx, tableStdev, cols, src, len(results))
}

func (s *Sink) copy(ctx context.Context, table string, cols []string, src pgx.CopyFromSource, n int) error {
	start := time.Now()
	copied, err := s.pool.CopyFrom(ctx, pgx.Identifier{table}, cols, src)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", table, err)
	}
	if int(copied) != n {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", table, copied, n)
	}

	s.logger.Info("results stored",
		slog.String("table", table),
		slog.String("run_id", s.runID),
		slog.Int64("rows", copied),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// StdevRun reads back one run's stdev results in output order
func (s *Sink) StdevRun(ctx context.Context, runID string) ([]domain.RollingStdev, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT security_id, snap_time, price_type, stdev, status
		 FROM stdev_results WHERE run_id = $1
		 ORDER BY security_id, price_type, snap_time`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RollingStdev
	for rows.Next() {
		var (
			r         domain.RollingStdev
			priceType string
			status    string
		)
		if err := rows.Scan(&r.SecurityID, &r.SnapTime, &priceType, &r.Stdev, &status); err != nil {
			return nil, err
		}
		r.SnapTime = r.SnapTime.UTC()
		r.PriceType = domain.PriceType(priceType)
		r.Status = domain.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RatesRun reads back one run's converted prices in input order
func (s *Sink) RatesRun(ctx context.Context, runID string) ([]domain.ConvertedPrice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT security_id, pair_id, ts, original_price, final_price, status
		 FROM rates_results WHERE run_id = $1 ORDER BY row_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ConvertedPrice
	for rows.Next() {
		var (
			r      domain.ConvertedPrice
			status string
		)
		if err := rows.Scan(&r.SecurityID, &r.PairID, &r.Timestamp, &r.OriginalPrice, &r.FinalPrice, &status); err != nil {
			return nil, err
		}
		r.Timestamp = r.Timestamp.UTC()
		r.Status = domain.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
