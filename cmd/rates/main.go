// Command rates converts a price table into final prices using the pair
// reference data and the FX spot rates of the preceding hour.
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
	"syscall"

	"pricecalc/internal/app"
	"pricecalc/internal/config"
	"pricecalc/internal/infrastructure"
	"pricecalc/internal/loader"
	"pricecalc/internal/services"
	"pricecalc/pkg/contracts"
	"pricecalc/pkg/contracts/domain"
)

// exit codes
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
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, domain.ErrDataQuality):
		slog.Error("input data quality faults", slog.String("error", err.Error()))
		return exitDataQuality
	default:
		slog.Error("rates run failed", slog.String("error", err.Error()))
		return exitError
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("rates", flag.ContinueOnError)
	fs.StringVar(&cfg.Input.CurrencyPairs, "pairs", cfg.Input.CurrencyPairs, "currency pair reference table (csv, xlsx or parquet)")
	fs.StringVar(&cfg.Input.Prices, "prices", cfg.Input.Prices, "price table")
	fs.StringVar(&cfg.Input.SpotRates, "spots", cfg.Input.SpotRates, "FX spot rate table")
	fs.StringVar(&cfg.Output.Dir, "out", cfg.Output.Dir, "output directory")
	fs.StringVar(&cfg.Output.Format, "format", cfg.Output.Format, "output format: csv or xlsx")
	fs.DurationVar(&cfg.Rates.SpotWindow, "window", cfg.Rates.SpotWindow, "spot rate look-back window")
	fs.StringVar(&cfg.Rates.DuplicatePolicy, "duplicates", cfg.Rates.DuplicatePolicy, "duplicate spot rate policy: first or reject")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetVersionString("rates"))
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
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

	svc := services.NewRatesService(loader.New(logger), app.RatesOptions(cfg), sink, metrics, logger)
	report, runErr := svc.Run(ctx, services.RatesRequest{
		CurrencyPairs: cfg.Input.CurrencyPairs,
		Prices:        cfg.Input.Prices,
		SpotRates:     cfg.Input.SpotRates,
	})

	// metrics are written for failed runs too
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
