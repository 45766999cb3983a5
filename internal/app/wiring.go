package app

import (
	"context"
	"fmt"
	"log/slog"

	"pricecalc/internal/cache"
	"pricecalc/internal/config"
	"pricecalc/internal/exporter"
	"pricecalc/internal/rates"
	"pricecalc/internal/stdev"
	"pricecalc/internal/storage/postgres"
)

// RatesOptions maps the rates section of the configuration
func RatesOptions(cfg *config.Config) rates.Options {
	return rates.Options{
		SpotWindow:      cfg.Rates.SpotWindow,
		DuplicatePolicy: rates.DuplicatePolicy(cfg.Rates.DuplicatePolicy),
	}
}

// StdevOptions maps the stdev section of the configuration
func StdevOptions(cfg *config.Config) stdev.Options {
	return stdev.Options{
		Window: cfg.Stdev.Window,
		Step:   cfg.Stdev.Step,
	}
}

// Closer releases what a constructor opened
type Closer func()

// NewSink builds the result sink of a batch run: result files in the
// output directory, plus a Postgres copy of the rows when enabled.
func NewSink(ctx context.Context, cfg *config.Config, runID string, logger *slog.Logger) (exporter.Sink, Closer, error) {
	files, err := exporter.NewFileSink(exporter.FileSinkOptions{
		Dir:    cfg.Output.Dir,
		Format: exporter.Format(cfg.Output.Format),
		Layout: exporter.Layout(cfg.Stdev.Layout),
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file sink: %w", err)
	}
	if !cfg.Postgres.Enabled {
		return files, func() {}, nil
	}

	opts := postgres.DefaultPoolOptions()
	if cfg.Postgres.MaxConns > 0 {
		opts.MaxConns = cfg.Postgres.MaxConns
	}
	pool, err := postgres.Connect(ctx, cfg.Postgres.DSN, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ensure postgres schema: %w", err)
	}

	logger.InfoContext(ctx, "postgres sink enabled", slog.String("run_id", runID))
	return exporter.MultiSink{files, postgres.NewSink(pool, runID, logger)}, pool.Close, nil
}

// NewCache builds the point-in-time query cache: Redis when enabled,
// otherwise an in-process cache of Server.CacheSize entries. A zero cache
// size with Redis disabled turns caching off.
func NewCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.StdevCache, error) {
	if cfg.Redis.Enabled {
		c, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.InfoContext(ctx, "redis query cache enabled", slog.String("addr", cfg.Redis.Addr))
		return c, nil
	}
	if cfg.Server.CacheSize <= 0 {
		return nil, nil
	}
	return cache.NewMemoryCache(cfg.Redis.TTL, cfg.Server.CacheSize), nil
}
