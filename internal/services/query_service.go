package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pricecalc/internal/cache"
	"pricecalc/internal/infrastructure"
	"pricecalc/internal/rates"
	"pricecalc/internal/stdev"
	"pricecalc/pkg/contracts/domain"
)

// DefaultMaxRangePoints bounds one range query to about a year of hourly
// snaps
const DefaultMaxRangePoints = 24 * 366

// QueryOptions configures a QueryService
type QueryOptions struct {
	Workers        int
	MaxRangePoints int
}

// QueryStatus describes the datasets a QueryService serves
type QueryStatus struct {
	StdevLoaded bool   `json:"stdev_loaded"`
	RatesLoaded bool   `json:"rates_loaded"`
	Securities  int    `json:"securities"`
	SnapRows    int    `json:"snap_rows"`
	Pairs       int    `json:"pairs"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// QueryService answers queries over datasets loaded once at startup.
// Either dataset may be nil; queries needing it return ErrNotLoaded.
type QueryService struct {
	history  *stdev.History
	pipeline *rates.Pipeline
	cache    cache.StdevCache
	opts     QueryOptions
	metrics  *infrastructure.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewQueryService creates a query service. A nil cache disables caching.
func NewQueryService(history *stdev.History, pipeline *rates.Pipeline, c cache.StdevCache, opts QueryOptions, metrics *infrastructure.Metrics, logger *slog.Logger) *QueryService {
	if opts.MaxRangePoints <= 0 {
		opts.MaxRangePoints = DefaultMaxRangePoints
	}
	opts.Workers = workerCount(opts.Workers)
	return &QueryService{
		history:  history,
		pipeline: pipeline,
		cache:    c,
		opts:     opts,
		metrics:  ensureMetrics(metrics),
		tracer:   infrastructure.Tracer(),
		logger:   ensureLogger(logger, "query_service"),
	}
}

// Status reports what is loaded
func (q *QueryService) Status() QueryStatus {
	var st QueryStatus
	if q.history != nil {
		st.StdevLoaded = true
		st.Securities = len(q.history.Securities())
		st.SnapRows = q.history.Rows()
		st.Fingerprint = fmt.Sprintf("%016x", q.history.Fingerprint())
	}
	if q.pipeline != nil {
		st.RatesLoaded = true
		st.Pairs = q.pipeline.Resolver().Len()
	}
	return st
}

// StdevAt returns the rolling stdev of one security and price type at a
// past snap time, computed from the full history
func (q *QueryService) StdevAt(ctx context.Context, securityID string, pt domain.PriceType, snap time.Time) (domain.RollingStdev, error) {
	if q.history == nil {
		return domain.RollingStdev{}, ErrNotLoaded
	}
	if _, ok := domain.ParsePriceType(string(pt)); !ok {
		return domain.RollingStdev{}, fmt.Errorf("%w: unknown price type %q", ErrInvalidInput, pt)
	}

	ctx, span := q.tracer.Start(ctx, "stdev.query", trace.WithAttributes(
		attribute.String("stdev.security_id", securityID),
		attribute.String("stdev.price_type", string(pt)),
		attribute.String("stdev.snap_time", snap.UTC().Format(time.RFC3339)),
	))
	defer span.End()

	// off-grid snaps are always INSUFFICIENT_DATA and never cached
	if !q.history.OnGrid(snap) {
		result := q.history.At(securityID, pt, snap)
		q.metrics.AddResults(infrastructure.PipelineQuery, map[string]int{result.Status.String(): 1})
		return result, nil
	}

	key := cache.Key{
		Fingerprint: q.history.Fingerprint(),
		SecurityID:  securityID,
		PriceType:   pt,
		SnapTime:    snap,
	}
	if cached := q.lookup(ctx, key); cached != nil {
		span.SetAttributes(attribute.Bool("stdev.cache_hit", true))
		return *cached, nil
	}

	result := q.history.At(securityID, pt, snap)
	if q.cache != nil {
		if err := q.cache.Set(ctx, key, result); err != nil {
			q.logger.WarnContext(ctx, "cache write failed", slog.String("key", key.String()), slog.String("error", err.Error()))
		}
	}
	q.metrics.AddResults(infrastructure.PipelineQuery, map[string]int{result.Status.String(): 1})
	return result, nil
}

// lookup reads key from the cache; cache failures count as misses
func (q *QueryService) lookup(ctx context.Context, key cache.Key) *domain.RollingStdev {
	if q.cache == nil {
		return nil
	}
	cached, err := q.cache.Get(ctx, key)
	switch {
	case err != nil:
		q.metrics.CacheLookup.WithLabelValues("error").Inc()
		q.logger.WarnContext(ctx, "cache read failed", slog.String("key", key.String()), slog.String("error", err.Error()))
		return nil
	case cached == nil:
		q.metrics.CacheLookup.WithLabelValues("miss").Inc()
		return nil
	default:
		q.metrics.CacheLookup.WithLabelValues("hit").Inc()
		return cached
	}
}

// StdevRange sweeps the grid start..end for the given securities, or for
// every security when none are given. Results are ordered by security,
// price type and snap time.
func (q *QueryService) StdevRange(ctx context.Context, start, end time.Time, securities []string) ([]domain.RollingStdev, error) {
	if q.history == nil {
		return nil, ErrNotLoaded
	}
	grid, err := stdev.NewGrid(start, end, q.history.Options().Step)
	if err != nil {
		return nil, err
	}
	if grid.Len() > q.opts.MaxRangePoints {
		return nil, fmt.Errorf("%w: %d snaps requested, at most %d allowed", ErrRangeTooLarge, grid.Len(), q.opts.MaxRangePoints)
	}

	ctx, span := q.tracer.Start(ctx, "stdev.calculate", trace.WithAttributes(
		attribute.Int("stdev.grid_points", grid.Len()),
		attribute.Int("stdev.securities", len(securities)),
	))
	defer span.End()

	results, err := stdev.NewCalculator(q.history, q.opts.Workers, q.logger).Calculate(ctx, grid, securities)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	q.metrics.AddResults(infrastructure.PipelineQuery, statusCounts(stdev.Summarize(results).ByStatus))
	return results, nil
}

// ConvertPrices converts ad hoc price rows against the loaded reference
// data, preserving their order
func (q *QueryService) ConvertPrices(ctx context.Context, prices []domain.PriceObservation) ([]domain.ConvertedPrice, error) {
	if q.pipeline == nil {
		return nil, ErrNotLoaded
	}

	ctx, span := q.tracer.Start(ctx, "rates.convert", trace.WithAttributes(
		attribute.Int("rates.prices", len(prices)),
	))
	defer span.End()

	results, err := q.pipeline.Run(prices)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	q.metrics.AddResults(infrastructure.PipelineQuery, statusCounts(rates.Summarize(results).ByStatus))
	return results, nil
}
