package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"pricecalc/pkg/contracts/domain"
)

// Format is the on-disk encoding of a result table
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Sink receives pipeline results
type Sink interface {
	WriteRates(ctx context.Context, results []domain.ConvertedPrice) error
	WriteStdev(ctx context.Context, results []domain.RollingStdev) error
}

// FileSinkOptions configures a FileSink
type FileSinkOptions struct {
	Dir       string
	Format    Format
	Layout    Layout
	RatesFile string // base name without extension
	StdevFile string
}

// FileSink writes results as CSV or XLSX files
type FileSink struct {
	opts   FileSinkOptions
	csv    *CSVWriter
	xlsx   *XLSXWriter
	logger *slog.Logger
}

// NewFileSink creates a file sink
func NewFileSink(opts FileSinkOptions, logger *slog.Logger) (*FileSink, error) {
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if opts.Format != FormatCSV && opts.Format != FormatXLSX {
		return nil, fmt.Errorf("unsupported output format: %s", opts.Format)
	}
	if opts.Layout == "" {
		opts.Layout = LayoutLong
	}
	if !opts.Layout.IsValid() {
		return nil, fmt.Errorf("unknown stdev layout: %s", opts.Layout)
	}
	if opts.RatesFile == "" {
		opts.RatesFile = "rates_result"
	}
	if opts.StdevFile == "" {
		opts.StdevFile = "stdev_result"
	}
	if opts.Dir != "" {
		if err := ValidateOutputDirectory(opts.Dir); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FileSink{
		opts:   opts,
		csv:    NewCSVWriter(opts.Dir),
		xlsx:   NewXLSXWriter(opts.Dir, ""),
		logger: logger,
	}, nil
}

// Path returns the file name written for a base name
func (s *FileSink) Path(base string) string {
	return base + "." + string(s.opts.Format)
}

// WriteRates writes the converted prices in input order
func (s *FileSink) WriteRates(ctx context.Context, results []domain.ConvertedPrice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(s.opts.RatesFile, RatesHeader, RatesRecords(results))
}

// WriteStdev writes the rolling stdev results in the configured layout
func (s *FileSink) WriteStdev(ctx context.Context, results []domain.RollingStdev) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records, err := StdevRecords(results, s.opts.Layout)
	if err != nil {
		return err
	}
	return s.write(s.opts.StdevFile, StdevHeader(s.opts.Layout), records)
}

func (s *FileSink) write(base string, headers []string, records [][]string) error {
	path := s.Path(base)

	var err error
	switch s.opts.Format {
	case FormatXLSX:
		err = s.xlsx.WriteXLSX(path, headers, records)
	default:
		err = s.csv.WriteCSV(path, WriteOptions{Headers: headers, Records: records})
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Info("results written",
		slog.String("file", path),
		slog.String("dir", s.opts.Dir),
		slog.Int("rows", len(records)))
	return nil
}

// MultiSink fans results out to several sinks in order
type MultiSink []Sink

// WriteRates implements Sink
func (m MultiSink) WriteRates(ctx context.Context, results []domain.ConvertedPrice) error {
	for _, s := range m {
		if err := s.WriteRates(ctx, results); err != nil {
			return err
		}
	}
	return nil
}

// WriteStdev implements Sink
func (m MultiSink) WriteStdev(ctx context.Context, results []domain.RollingStdev) error {
	for _, s := range m {
		if err := s.WriteStdev(ctx, results); err != nil {
			return err
		}
	}
	return nil
}
