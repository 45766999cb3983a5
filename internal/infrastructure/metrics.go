package infrastructure

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline labels
const (
	PipelineRates = "rates"
	PipelineStdev = "stdev"
	PipelineQuery = "query"
)

// Metrics is the pricecalc metric set on a private registry
type Metrics struct {
	Registry    *prometheus.Registry
	Results     *prometheus.CounterVec
	RowsIn      *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	CacheLookup *prometheus.CounterVec
}

// NewMetrics creates and registers the metric set. Go runtime and process
// collectors are included when withRuntime is set.
func NewMetrics(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricecalc_results_total",
			Help: "Result rows produced, by pipeline and status.",
		}, []string{"pipeline", "status"}),
		RowsIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricecalc_rows_in_total",
			Help: "Input rows loaded, by table.",
		}, []string{"table"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pricecalc_run_duration_seconds",
			Help:    "Wall time of one pipeline run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"pipeline"}),
		CacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricecalc_cache_lookups_total",
			Help: "Point-in-time query cache lookups, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.Results, m.RowsIn, m.RunDuration, m.CacheLookup)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// ObserveRun records the duration of a pipeline run
func (m *Metrics) ObserveRun(pipeline string, d time.Duration) {
	m.RunDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

// AddResults counts result rows by status
func (m *Metrics) AddResults(pipeline string, byStatus map[string]int) {
	for status, n := range byStatus {
		m.Results.WithLabelValues(pipeline, status).Add(float64(n))
	}
}

// AddRowsIn counts loaded input rows
func (m *Metrics) AddRowsIn(table string, n int) {
	m.RowsIn.WithLabelValues(table).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// WriteTextfile writes the registry for the node exporter textfile
// collector. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
