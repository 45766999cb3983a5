package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "pricecalc/internal/errors"
	"pricecalc/internal/infrastructure"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		assert.Equal(t, seen, infrastructure.GetTraceID(r.Context()))
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := infrastructure.NewLogger(&buf, "info")

	h := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stdev", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"msg":"request completed"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"trace_id":"req-1"`)
}

func decodeProblem(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &problem))
	return problem
}

func TestRecoverer(t *testing.T) {
	eh := apierrors.NewErrorHandler(discardLogger(), false)
	h := RequestID(Recoverer(eh)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-2")
	require.NotPanics(t, func() { h.ServeHTTP(rec, req) })

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	problem := decodeProblem(t, rec.Body.Bytes())
	assert.Equal(t, apierrors.TypeInternal, problem["type"])
	assert.Equal(t, "req-2", problem["trace_id"])
}

func TestRateLimiter(t *testing.T) {
	eh := apierrors.NewErrorHandler(discardLogger(), false)
	rl := NewRateLimiter(0.0001, 2, eh, discardLogger())
	h := RequestID(rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	// a quote in the request id must not break the JSON body
	const reqID = `id-"quoted"`
	var last *httptest.ResponseRecorder
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", reqID)
		h.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	problem := decodeProblem(t, last.Body.Bytes())
	assert.Equal(t, apierrors.TypeRateLimit, problem["type"])
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", problem["error_code"])
	assert.Equal(t, reqID, problem["trace_id"])
}

func TestOTelMiddlewareRoutePattern(t *testing.T) {
	metrics := infrastructure.NewMetrics(false)
	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfig{
		TraceExporter: "none",
		Registerer:    metrics.Registry,
	}, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	om, err := NewOTelMiddleware(providers)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(om.Handler)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `route="/items/{id}"`)
	assert.False(t, strings.Contains(body, `route="/items/a"`))
}
