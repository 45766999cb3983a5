package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "pricecalc/internal/errors"
	"pricecalc/internal/services"
	"pricecalc/pkg/contracts/domain"
)

// MockQueryService is a mock implementation of QueryServiceInterface
type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Status() services.QueryStatus {
	args := m.Called()
	return args.Get(0).(services.QueryStatus)
}

func (m *MockQueryService) StdevAt(ctx context.Context, securityID string, pt domain.PriceType, snap time.Time) (domain.RollingStdev, error) {
	args := m.Called(securityID, pt, snap)
	return args.Get(0).(domain.RollingStdev), args.Error(1)
}

func (m *MockQueryService) StdevRange(ctx context.Context, start, end time.Time, securities []string) ([]domain.RollingStdev, error) {
	args := m.Called(start, end, securities)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RollingStdev), args.Error(1)
}

func (m *MockQueryService) ConvertPrices(ctx context.Context, prices []domain.PriceObservation) ([]domain.ConvertedPrice, error) {
	args := m.Called(prices)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConvertedPrice), args.Error(1)
}

var snapTime = time.Date(2021, 11, 22, 5, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRouter(svc *MockQueryService) chi.Router {
	logger := testLogger()
	eh := apierrors.NewErrorHandler(logger, false)
	r := chi.NewRouter()
	r.Get("/healthz", NewHealthHandler(svc, logger).HealthCheck)
	r.Mount("/api/v1/stdev", NewStdevHandler(svc, logger, eh).Routes())
	r.Mount("/api/v1/rates", NewRatesHandler(svc, logger, eh).Routes())
	return r
}

func serve(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status services.QueryStatus
		code   int
		want   string
	}{
		{"loaded", services.QueryStatus{StdevLoaded: true, Securities: 3}, http.StatusOK, "ok"},
		{"nothing loaded", services.QueryStatus{}, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockQueryService)
			svc.On("Status").Return(tt.status)

			rec := serve(t, newTestRouter(svc), http.MethodGet, "/healthz", nil)
			assert.Equal(t, tt.code, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.status, resp.Datasets)
		})
	}
}

func TestStdevHandler_GetPoint(t *testing.T) {
	svc := new(MockQueryService)
	result := domain.RollingStdev{
		SecurityID: "S1",
		SnapTime:   snapTime,
		PriceType:  domain.PriceTypeMid,
		Stdev:      domain.Float64Ptr(0.25),
		Status:     domain.StatusOK,
	}
	svc.On("StdevAt", "S1", domain.PriceTypeMid, snapTime).Return(result, nil)

	rec := serve(t, newTestRouter(svc), http.MethodGet, "/api/v1/stdev/S1/mid?snap_time=2021-11-22T05:00:00Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)

	var got domain.RollingStdev
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, result, got)
}

func TestStdevHandler_GetPointErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		serviceErr error
		code       int
		problem    string
	}{
		{"bad price type", "/api/v1/stdev/S1/last?snap_time=2021-11-22T05:00:00Z", nil, http.StatusBadRequest, apierrors.TypeValidation},
		{"missing snap time", "/api/v1/stdev/S1/mid", nil, http.StatusBadRequest, apierrors.TypeValidation},
		{"unparseable snap time", "/api/v1/stdev/S1/mid?snap_time=yesterday", nil, http.StatusBadRequest, apierrors.TypeValidation},
		{"not loaded", "/api/v1/stdev/S1/mid?snap_time=2021-11-22T05:00:00Z", services.ErrNotLoaded, http.StatusServiceUnavailable, apierrors.TypeServiceDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockQueryService)
			if tt.serviceErr != nil {
				svc.On("StdevAt", mock.Anything, mock.Anything, mock.Anything).Return(domain.RollingStdev{}, tt.serviceErr)
			}

			rec := serve(t, newTestRouter(svc), http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.problem, decodeProblem(t, rec)["type"])
			if tt.serviceErr == nil {
				svc.AssertNotCalled(t, "StdevAt", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestStdevHandler_GetRange(t *testing.T) {
	start := snapTime
	end := snapTime.Add(2 * time.Hour)

	t.Run("security filter", func(t *testing.T) {
		svc := new(MockQueryService)
		rows := []domain.RollingStdev{
			{SecurityID: "S1", SnapTime: start, PriceType: domain.PriceTypeAsk, Status: domain.StatusInsufficientData},
		}
		svc.On("StdevRange", start, end, []string{"S1", "S2", "S3"}).Return(rows, nil)

		target := "/api/v1/stdev?start=2021-11-22T05:00:00Z&end=2021-11-22T07:00:00Z&security_id=S1,S2&security_id=S3"
		rec := serve(t, newTestRouter(svc), http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got []domain.RollingStdev
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, rows, got)
	})

	t.Run("empty result is a list", func(t *testing.T) {
		svc := new(MockQueryService)
		svc.On("StdevRange", start, end, []string(nil)).Return(nil, nil)

		rec := serve(t, newTestRouter(svc), http.MethodGet, "/api/v1/stdev?start=2021-11-22T05:00:00Z&end=2021-11-22T07:00:00Z", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("data quality fault", func(t *testing.T) {
		svc := new(MockQueryService)
		var faults domain.Faults
		faults.Add("parameters", -1, "start", "start is after end", nil)
		svc.On("StdevRange", end, start, []string(nil)).Return(nil, faults.Err())

		rec := serve(t, newTestRouter(svc), http.MethodGet, "/api/v1/stdev?start=2021-11-22T07:00:00Z&end=2021-11-22T05:00:00Z", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeProblem(t, rec)
		assert.Equal(t, apierrors.TypeDataQuality, body["type"])
		assert.Len(t, body["faults"], 1)
	})

	t.Run("range too large", func(t *testing.T) {
		svc := new(MockQueryService)
		svc.On("StdevRange", start, end, []string(nil)).Return(nil, services.ErrRangeTooLarge)

		rec := serve(t, newTestRouter(svc), http.MethodGet, "/api/v1/stdev?start=2021-11-22T05:00:00Z&end=2021-11-22T07:00:00Z", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing end", func(t *testing.T) {
		svc := new(MockQueryService)
		rec := serve(t, newTestRouter(svc), http.MethodGet, "/api/v1/stdev?start=2021-11-22T05:00:00Z", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "StdevRange", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRatesHandler_Convert(t *testing.T) {
	ts := time.Date(2021, 11, 20, 10, 30, 0, 0, time.UTC)

	svc := new(MockQueryService)
	want := []domain.ConvertedPrice{
		{PairID: "EURUSD", SecurityID: "S1", Timestamp: ts, OriginalPrice: 110, FinalPrice: domain.Float64Ptr(101.25), Status: domain.StatusOK},
		{PairID: "USDJPY", Timestamp: ts, OriginalPrice: 0, Status: domain.StatusNoRule},
	}
	svc.On("ConvertPrices", []domain.PriceObservation{
		{PairID: "EURUSD", SecurityID: "S1", Timestamp: ts, Price: 110},
		{PairID: "USDJPY", Timestamp: ts, Price: 0},
	}).Return(want, nil)

	body := []byte(`[
		{"pair_id":"EURUSD","security_id":"S1","timestamp":"2021-11-20T10:30:00Z","price":110},
		{"pair_id":"USDJPY","timestamp":"2021-11-20T12:30:00+02:00","price":0}
	]`)
	rec := serve(t, newTestRouter(svc), http.MethodPost, "/api/v1/rates/convert", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)

	var got []domain.ConvertedPrice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want, got)
}

func TestRatesHandler_ConvertErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    int
		problem string
	}{
		{"malformed json", `{"pair_id":`, http.StatusBadRequest, apierrors.TypeValidation},
		{"empty batch", `[]`, http.StatusBadRequest, apierrors.TypeValidation},
		{"missing price", `[{"pair_id":"EURUSD","timestamp":"2021-11-20T10:30:00Z"}]`, http.StatusBadRequest, apierrors.TypeValidation},
		{"missing pair", `[{"timestamp":"2021-11-20T10:30:00Z","price":1}]`, http.StatusBadRequest, apierrors.TypeValidation},
		{"missing timestamp", `[{"pair_id":"EURUSD","price":1}]`, http.StatusBadRequest, apierrors.TypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockQueryService)
			rec := serve(t, newTestRouter(svc), http.MethodPost, "/api/v1/rates/convert", []byte(tt.body))
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.problem, decodeProblem(t, rec)["type"])
			svc.AssertNotCalled(t, "ConvertPrices", mock.Anything)
		})
	}
}

func TestRatesHandler_ValidationDetails(t *testing.T) {
	svc := new(MockQueryService)
	rec := serve(t, newTestRouter(svc), http.MethodPost, "/api/v1/rates/convert",
		[]byte(`[{"pair_id":"EURUSD","timestamp":"2021-11-20T10:30:00Z","price":1},{"timestamp":"2021-11-20T10:30:00Z","price":1}]`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	details, ok := decodeProblem(t, rec)["details"].([]interface{})
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "Prices[1].PairID", details[0].(map[string]interface{})["field"])
}
