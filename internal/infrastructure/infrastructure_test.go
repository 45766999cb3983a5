package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecalc/internal/config"
)

func TestNewLoggerInjectsTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	ctx := WithTraceID(context.Background(), "run-123")
	logger.InfoContext(ctx, "loaded table", "rows", 3)
	logger.DebugContext(ctx, "filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug is below the level")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "loaded table", entry["msg"])
	assert.Equal(t, "run-123", entry["trace_id"])
	assert.Equal(t, float64(3), entry["rows"])
}

func TestInitializeLoggerFile(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	logger, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "file", FilePath: logFile})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Debug("to file")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"to file"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"WARNING": "WARN",
		"error":   "ERROR",
		"bogus":   "INFO",
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in).String(), in)
	}
}

func TestTraceIDs(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)), "existing id is kept")
	assert.NotEqual(t, id, GenerateTraceID())
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(false)

	m.AddResults(PipelineRates, map[string]int{"OK": 3, "NO_RULE": 1})
	m.AddRowsIn("prices", 4)
	m.ObserveRun(PipelineRates, 20*time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Results.WithLabelValues(PipelineRates, "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Results.WithLabelValues(PipelineRates, "NO_RULE")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RowsIn.WithLabelValues("prices")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pricecalc_results_total")
}

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics(false)
	m.AddRowsIn("snaps", 7)

	path := filepath.Join(t.TempDir(), "textfile", "pricecalc.prom")
	require.NoError(t, m.WriteTextfile(path))
	require.NoError(t, m.WriteTextfile(""))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `pricecalc_rows_in_total{table="snaps"} 7`)
}

func TestInitializeOTel(t *testing.T) {
	m := NewMetrics(false)

	providers, err := InitializeOTel(OTelConfig{TraceExporter: "none", Registerer: m.Registry}, nil)
	require.NoError(t, err)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.MeterProvider)

	hm, err := NewHTTPMetrics(providers.Meter)
	require.NoError(t, err)
	hm.Record(context.Background(), "/healthz", http.MethodGet, 200, 0.01)

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, strings.Join(names, ","), "http_requests_total")

	require.NoError(t, providers.Shutdown(context.Background()))

	_, err = InitializeOTel(OTelConfig{TraceExporter: "zipkin"}, nil)
	assert.Error(t, err)
}

func TestRecordErrorWithoutSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(context.Background(), assert.AnError)
	})
}
