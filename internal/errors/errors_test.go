package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecalc/pkg/contracts/domain"
)

func newHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)), false)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleError(t *testing.T) {
	var faults domain.Faults
	faults.Add("security_snaps", 4, "snap_time", "duplicate snap", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "data quality",
			err:        fmt.Errorf("load history: %w", faults.Err()),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDataQuality,
		},
		{
			name:       "invalid parameter",
			err:        InvalidParameter("snap_time", "not RFC3339"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "not found",
			err:        NotFoundError("security S9"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "deadline",
			err:        fmt.Errorf("query: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/stdev", nil)

			newHandler().HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/v1/stdev", body["instance"])
		})
	}
}

func TestDataQualityFaultsRendered(t *testing.T) {
	var faults domain.Faults
	faults.Add("currency_pairs", 0, "pair_id", "duplicate pair id", "EURUSD")

	rec := httptest.NewRecorder()
	newHandler().HandleError(rec, httptest.NewRequest(http.MethodPost, "/x", nil), faults.Err())

	body := decode(t, rec)
	list, ok := body["faults"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	fault := list[0].(map[string]interface{})
	assert.Equal(t, "pair_id", fault["field"])
	assert.Equal(t, "EURUSD", fault["value"])
}

func TestHandleErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler().HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestHandlePanic(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler().HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/", nil), "boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.NotContains(t, body, "panic")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newHandler()

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "DELETE")
}

func TestProblemDetailsExtensionsDoNotOverrideFields(t *testing.T) {
	p := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "x", "/y").
		WithExtension("status", 999).
		WithExtension("error_code", "INVALID_REQUEST")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
	assert.Equal(t, "INVALID_REQUEST", body["error_code"])
}
