package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pricecalc/internal/exporter"
	"pricecalc/internal/infrastructure"
	"pricecalc/internal/loader"
	"pricecalc/internal/stdev"
	"pricecalc/pkg/contracts/domain"
)

// StdevRequest describes one rolling stdev run. An empty Securities list
// selects every security in the input. A zero Start or End defaults to the
// earliest or latest snap time in the input.
type StdevRequest struct {
	SecuritySnaps string
	Start         time.Time
	End           time.Time
	Securities    []string
}

// StdevReport summarizes a rolling stdev run
type StdevReport struct {
	RunID       string                `json:"run_id"`
	Fingerprint uint64                `json:"fingerprint"`
	GridPoints  int                   `json:"grid_points"`
	Summary     stdev.Summary         `json:"summary"`
	Duration    time.Duration         `json:"duration"`
	Results     []domain.RollingStdev `json:"-"`
}

// StdevService computes rolling stdevs over a snap grid
type StdevService struct {
	loader  *loader.Loader
	opts    stdev.Options
	workers int
	sink    exporter.Sink
	metrics *infrastructure.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewStdevService creates a stdev service. workers <= 0 uses one worker
// per CPU; a nil sink keeps results in the report only.
func NewStdevService(l *loader.Loader, opts stdev.Options, workers int, sink exporter.Sink, metrics *infrastructure.Metrics, logger *slog.Logger) *StdevService {
	logger = ensureLogger(logger, "stdev_service")
	if l == nil {
		l = loader.New(logger)
	}
	return &StdevService{
		loader:  l,
		opts:    opts,
		workers: workerCount(workers),
		sink:    sink,
		metrics: ensureMetrics(metrics),
		tracer:  infrastructure.Tracer(),
		logger:  logger,
	}
}

// Run loads the snaps, sweeps the grid and writes the results
func (s *StdevService) Run(ctx context.Context, req StdevRequest) (*StdevReport, error) {
	ctx, runID := runContext(ctx)
	started := time.Now()

	// explicit bounds fail before any file is read
	var grid stdev.Grid
	bounded := !req.Start.IsZero() && !req.End.IsZero()
	if bounded {
		g, err := stdev.NewGrid(req.Start, req.End, s.opts.Step)
		if err != nil {
			return nil, err
		}
		grid = g
	}

	snaps, err := s.loader.LoadSnaps(req.SecuritySnaps)
	if err != nil {
		return nil, fmt.Errorf("failed to load security snaps: %w", err)
	}
	s.metrics.AddRowsIn(TableSecuritySnaps, len(snaps))

	history, err := stdev.NewHistory(snaps, s.opts)
	if err != nil {
		return nil, err
	}

	var results []domain.RollingStdev
	if !bounded {
		first, last, ok := history.Bounds()
		if req.Start.IsZero() {
			req.Start = first
		}
		if req.End.IsZero() {
			req.End = last
		}
		if !ok && (req.Start.IsZero() || req.End.IsZero()) {
			s.logger.WarnContext(ctx, "no snaps to derive grid bounds from", slog.String("path", req.SecuritySnaps))
		} else if grid, err = stdev.NewGrid(req.Start, req.End, s.opts.Step); err != nil {
			return nil, err
		}
	}

	if grid.Step > 0 {
		if results, err = s.Calculate(ctx, history, grid, req.Securities); err != nil {
			return nil, err
		}
	}

	if s.sink != nil {
		if err := s.sink.WriteStdev(ctx, results); err != nil {
			return nil, fmt.Errorf("failed to write stdev results: %w", err)
		}
	}

	report := &StdevReport{
		RunID:       runID,
		Fingerprint: history.Fingerprint(),
		GridPoints:  gridPoints(grid),
		Summary:     stdev.Summarize(results),
		Duration:    time.Since(started),
		Results:     results,
	}
	s.metrics.ObserveRun(infrastructure.PipelineStdev, report.Duration)

	s.logger.InfoContext(ctx, "stdev run completed",
		slog.String("run_id", runID),
		slog.String("fingerprint", fmt.Sprintf("%016x", report.Fingerprint)),
		slog.Int("securities", len(history.Securities())),
		slog.Int("grid_points", report.GridPoints),
		slog.Int("rows", report.Summary.Total),
		slog.Int("ok", report.Summary.ByStatus[domain.StatusOK]),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// Calculate sweeps grid over an already indexed history
func (s *StdevService) Calculate(ctx context.Context, history *stdev.History, grid stdev.Grid, securities []string) ([]domain.RollingStdev, error) {
	ctx, span := s.tracer.Start(ctx, "stdev.calculate", trace.WithAttributes(
		attribute.Int("stdev.grid_points", grid.Len()),
		attribute.Int("stdev.securities", len(securities)),
		attribute.Int("stdev.workers", s.workers),
	))
	defer span.End()

	calc := stdev.NewCalculator(history, s.workers, s.logger)
	results, err := calc.Calculate(ctx, grid, securities)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	summary := stdev.Summarize(results)
	s.metrics.AddResults(infrastructure.PipelineStdev, statusCounts(summary.ByStatus))
	span.SetAttributes(attribute.Int("stdev.ok", summary.ByStatus[domain.StatusOK]))
	return results, nil
}

func gridPoints(g stdev.Grid) int {
	if g.Step <= 0 {
		return 0
	}
	return g.Len()
}
