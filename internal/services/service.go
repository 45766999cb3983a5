package services

import (
	"context"
	"log/slog"
	"runtime"

	"pricecalc/internal/infrastructure"
	"pricecalc/pkg/contracts/domain"
)

// Input table names used for metrics and logs
const (
	TableCurrencyPairs = "currency_pairs"
	TablePrices        = "prices"
	TableSpotRates     = "spot_rates"
	TableSecuritySnaps = "security_snaps"
)

// statusCounts converts a status histogram to metric label values
func statusCounts(byStatus map[domain.Status]int) map[string]int {
	out := make(map[string]int, len(byStatus))
	for status, n := range byStatus {
		out[status.String()] = n
	}
	return out
}

// workerCount maps the configured worker count to a real one, 0 meaning
// one worker per available CPU
func workerCount(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

func ensureMetrics(m *infrastructure.Metrics) *infrastructure.Metrics {
	if m == nil {
		return infrastructure.NewMetrics(false)
	}
	return m
}

func ensureLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return infrastructure.WithComponent(logger, component)
}

// runContext attaches a run id to ctx unless it already carries one
func runContext(ctx context.Context) (context.Context, string) {
	ctx = infrastructure.EnsureTraceID(ctx)
	return ctx, infrastructure.GetTraceID(ctx)
}
