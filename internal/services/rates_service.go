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
	"pricecalc/internal/rates"
	"pricecalc/pkg/contracts/domain"
)

// RatesRequest names the three input tables of a conversion run
type RatesRequest struct {
	CurrencyPairs string
	Prices        string
	SpotRates     string
}

// RatesReport summarizes a conversion run
type RatesReport struct {
	RunID    string                  `json:"run_id"`
	Summary  rates.Summary           `json:"summary"`
	Duration time.Duration           `json:"duration"`
	Results  []domain.ConvertedPrice `json:"-"`
}

// RatesService converts price tables into final prices
type RatesService struct {
	loader  *loader.Loader
	opts    rates.Options
	sink    exporter.Sink
	metrics *infrastructure.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewRatesService creates a rates service. A nil sink keeps results in
// the report only.
func NewRatesService(l *loader.Loader, opts rates.Options, sink exporter.Sink, metrics *infrastructure.Metrics, logger *slog.Logger) *RatesService {
	logger = ensureLogger(logger, "rates_service")
	if l == nil {
		l = loader.New(logger)
	}
	return &RatesService{
		loader:  l,
		opts:    opts,
		sink:    sink,
		metrics: ensureMetrics(metrics),
		tracer:  infrastructure.Tracer(),
		logger:  logger,
	}
}

// Run loads the input tables, converts every price and writes the results
func (s *RatesService) Run(ctx context.Context, req RatesRequest) (*RatesReport, error) {
	ctx, runID := runContext(ctx)
	started := time.Now()

	input, err := s.loader.LoadRates(req.CurrencyPairs, req.Prices, req.SpotRates)
	if err != nil {
		return nil, fmt.Errorf("failed to load rates input: %w", err)
	}
	s.metrics.AddRowsIn(TableCurrencyPairs, len(input.Pairs))
	s.metrics.AddRowsIn(TablePrices, len(input.Prices))
	s.metrics.AddRowsIn(TableSpotRates, len(input.Spots))

	results, err := s.Convert(ctx, input)
	if err != nil {
		return nil, err
	}

	if s.sink != nil {
		if err := s.sink.WriteRates(ctx, results); err != nil {
			return nil, fmt.Errorf("failed to write rates results: %w", err)
		}
	}

	report := &RatesReport{
		RunID:    runID,
		Summary:  rates.Summarize(results),
		Duration: time.Since(started),
		Results:  results,
	}
	s.metrics.ObserveRun(infrastructure.PipelineRates, report.Duration)

	s.logger.InfoContext(ctx, "rates run completed",
		slog.String("run_id", runID),
		slog.Int("rows", report.Summary.Total),
		slog.Int("ok", report.Summary.ByStatus[domain.StatusOK]),
		slog.Int("no_rule", report.Summary.ByStatus[domain.StatusNoRule]),
		slog.Int("insufficient_data", report.Summary.ByStatus[domain.StatusInsufficientData]),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// Convert runs the conversion pipeline over tables already in memory
func (s *RatesService) Convert(ctx context.Context, input *loader.RatesInput) ([]domain.ConvertedPrice, error) {
	ctx, span := s.tracer.Start(ctx, "rates.convert", trace.WithAttributes(
		attribute.Int("rates.pairs", len(input.Pairs)),
		attribute.Int("rates.prices", len(input.Prices)),
		attribute.Int("rates.spots", len(input.Spots)),
	))
	defer span.End()

	pipeline, err := rates.NewPipeline(input.Pairs, input.Spots, s.opts)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if d := pipeline.Matcher().Duplicates(); d > 0 {
		s.logger.WarnContext(ctx, "duplicate spot rates ignored",
			slog.Int("duplicates", d),
			slog.String("policy", string(s.opts.DuplicatePolicy)))
	}

	results, err := pipeline.Run(input.Prices)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	summary := rates.Summarize(results)
	s.metrics.AddResults(infrastructure.PipelineRates, statusCounts(summary.ByStatus))
	span.SetAttributes(attribute.Int("rates.ok", summary.ByStatus[domain.StatusOK]))
	return results, nil
}
