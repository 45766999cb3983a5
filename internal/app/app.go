package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"pricecalc/internal/cache"
	"pricecalc/internal/config"
	apierrors "pricecalc/internal/errors"
	"pricecalc/internal/infrastructure"
	"pricecalc/internal/loader"
	customMiddleware "pricecalc/internal/middleware"
	"pricecalc/internal/rates"
	"pricecalc/internal/services"
	"pricecalc/internal/stdev"
	handlers "pricecalc/internal/transport/http"
	"pricecalc/pkg/contracts"
)

// AppName names the query server in logs
const AppName = "pricecalc-server"

// Application represents the query server container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Query         *services.QueryService
	Cache         cache.StdevCache
	Metrics       *infrastructure.Metrics
	OTelProviders *infrastructure.OTelProviders
	Logger        *slog.Logger
}

// NewApplication loads the datasets named in cfg and wires the server
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	metrics := infrastructure.NewMetrics(true)
	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfig{
		ServiceName:   cfg.Telemetry.ServiceName,
		TraceExporter: cfg.Telemetry.TracingExporter,
		Registerer:    metrics.Registry,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Metrics:       metrics,
		OTelProviders: otelProviders,
		Logger:        logger,
	}

	if err := a.initializeServices(ctx); err != nil {
		_ = otelProviders.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices loads the datasets and builds the query service.
// A dataset whose input path is empty or missing is skipped; its
// endpoints answer 503.
func (a *Application) initializeServices(ctx context.Context) error {
	l := loader.New(a.Logger)

	history, err := a.loadHistory(l)
	if err != nil {
		return err
	}
	pipeline, err := a.loadPipeline(l)
	if err != nil {
		return err
	}
	if history == nil && pipeline == nil {
		a.Logger.WarnContext(ctx, "no dataset loaded, queries will be unavailable")
	}

	c, err := NewCache(ctx, a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.Cache = c

	a.Query = services.NewQueryService(history, pipeline, c, services.QueryOptions{
		Workers: a.Config.Stdev.Workers,
	}, a.Metrics, a.Logger)
	return nil
}

func (a *Application) loadHistory(l *loader.Loader) (*stdev.History, error) {
	path := a.Config.Input.SecuritySnaps
	if !a.inputExists("security_snaps", path) {
		return nil, nil
	}
	snaps, err := l.LoadSnaps(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load security snaps: %w", err)
	}
	a.Metrics.AddRowsIn(services.TableSecuritySnaps, len(snaps))

	history, err := stdev.NewHistory(snaps, StdevOptions(a.Config))
	if err != nil {
		return nil, err
	}
	a.Logger.Info("stdev dataset loaded",
		slog.Int("rows", history.Rows()),
		slog.Int("securities", len(history.Securities())),
		slog.String("fingerprint", fmt.Sprintf("%016x", history.Fingerprint())))
	return history, nil
}

func (a *Application) loadPipeline(l *loader.Loader) (*rates.Pipeline, error) {
	in := a.Config.Input
	if !a.inputExists("currency_pairs", in.CurrencyPairs) || !a.inputExists("spot_rates", in.SpotRates) {
		return nil, nil
	}
	ref, err := l.LoadReference(in.CurrencyPairs, in.SpotRates)
	if err != nil {
		return nil, fmt.Errorf("failed to load rates reference data: %w", err)
	}
	a.Metrics.AddRowsIn(services.TableCurrencyPairs, len(ref.Pairs))
	a.Metrics.AddRowsIn(services.TableSpotRates, len(ref.Spots))

	pipeline, err := rates.NewPipeline(ref.Pairs, ref.Spots, RatesOptions(a.Config))
	if err != nil {
		return nil, err
	}
	a.Logger.Info("rates dataset loaded",
		slog.Int("pairs", pipeline.Resolver().Len()),
		slog.Int("spots", len(ref.Spots)))
	return pipeline, nil
}

func (a *Application) inputExists(name, path string) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		a.Logger.Warn("input not available, dataset skipped",
			slog.String("input", name),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	// RequestID → OTel → Logger → Recoverer → RateLimit
	r.Use(customMiddleware.RequestID)
	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(errorHandler))

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.Query, a.Logger)
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, errorHandler, a.Logger).Handler)
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/stdev", handlers.NewStdevHandler(a.Query, a.Logger, errorHandler).Routes())
		r.Mount("/rates", handlers.NewRatesHandler(a.Query, a.Logger, errorHandler).Routes())
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start serves in the background. A listener failure cancels ctx through
// cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting server",
		slog.String("addr", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// Stop gracefully stops the server and releases the cache and telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close error: %w", err))
		}
	}
	if err := a.Metrics.WriteTextfile(a.Config.Telemetry.MetricsTextfile); err != nil {
		errs = append(errs, err)
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	a.Logger.InfoContext(ctx, "Server shutdown complete")
	return nil
}

// Run serves until SIGINT, SIGTERM or a listener failure
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}
	return a.Stop(ctx)
}
