// Command server answers point-in-time stdev, stdev range and price
// conversion queries over datasets loaded at startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"pricecalc/internal/app"
	"pricecalc/internal/config"
	"pricecalc/internal/infrastructure"
	"pricecalc/pkg/contracts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	flag.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "listen port")
	flag.StringVar(&cfg.Input.SecuritySnaps, "snaps", cfg.Input.SecuritySnaps, "hourly security price table to serve")
	flag.StringVar(&cfg.Input.CurrencyPairs, "pairs", cfg.Input.CurrencyPairs, "currency pair reference table")
	flag.StringVar(&cfg.Input.SpotRates, "spots", cfg.Input.SpotRates, "FX spot rate table")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString("server"))
		return
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid flags", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
