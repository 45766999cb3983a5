// Command stdev computes gap-aware rolling standard deviations of bid, mid
// and ask prices for every security over an hourly snap grid.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pricecalc/internal/app"
	"pricecalc/internal/config"
	"pricecalc/internal/infrastructure"
	"pricecalc/internal/loader"
	"pricecalc/internal/services"
	"pricecalc/pkg/contracts"
	"pricecalc/pkg/contracts/domain"
)

const (
	exitOK          = 0
	exitError       = 1
	exitDataQuality = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, domain.ErrDataQuality):
		slog.Error("input data quality faults", slog.String("error", err.Error()))
		return exitDataQuality
	default:
		slog.Error("stdev run failed", slog.String("error", err.Error()))
		return exitError
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("stdev", flag.ContinueOnError)
	fs.StringVar(&cfg.Input.SecuritySnaps, "snaps", cfg.Input.SecuritySnaps, "hourly security price table (csv, xlsx or parquet)")
	fs.StringVar(&cfg.Output.Dir, "out", cfg.Output.Dir, "output directory")
	fs.StringVar(&cfg.Output.Format, "format", cfg.Output.Format, "output format: csv or xlsx")
	fs.StringVar(&cfg.Stdev.Layout, "layout", cfg.Stdev.Layout, "output layout: long or wide")
	fs.IntVar(&cfg.Stdev.Window, "window", cfg.Stdev.Window, "rolling window size in snaps")
	fs.DurationVar(&cfg.Stdev.Step, "step", cfg.Stdev.Step, "snap grid step")
	fs.IntVar(&cfg.Stdev.Workers, "workers", cfg.Stdev.Workers, "parallel workers, 0 for one per CPU")
	start := fs.String("start", "", "first snap time of the grid, default the earliest snap")
	end := fs.String("end", "", "last snap time of the grid, default the latest snap")
	securities := fs.String("securities", "", "comma separated security ids, default all")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetVersionString("stdev"))
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	req := services.StdevRequest{
		SecuritySnaps: cfg.Input.SecuritySnaps,
		Securities:    splitList(*securities),
	}
	if *start != "" {
		if req.Start, err = loader.ParseTime(*start); err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
	}
	if *end != "" {
		if req.End, err = loader.ParseTime(*end); err != nil {
			return fmt.Errorf("invalid -end: %w", err)
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	runID := infrastructure.GenerateTraceID()
	ctx = infrastructure.WithTraceID(ctx, runID)

	metrics := infrastructure.NewMetrics(false)
	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfig{
		ServiceName:   cfg.Telemetry.ServiceName,
		TraceExporter: cfg.Telemetry.TracingExporter,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelProviders.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	sink, closeSink, err := app.NewSink(ctx, cfg, runID, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	svc := services.NewStdevService(loader.New(logger), app.StdevOptions(cfg), cfg.Stdev.Workers, sink, metrics, logger)
	report, runErr := svc.Run(ctx, req)

	if err := metrics.WriteTextfile(cfg.Telemetry.MetricsTextfile); err != nil {
		logger.WarnContext(ctx, "failed to write metrics", slog.String("error", err.Error()))
	}
	if runErr != nil {
		return runErr
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
