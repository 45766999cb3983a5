package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"pricecalc/internal/services"
	"pricecalc/pkg/contracts"
)

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status    string               `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Version   string               `json:"version"`
	Uptime    string               `json:"uptime"`
	Datasets  services.QueryStatus `json:"datasets"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	service   QueryServiceInterface
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service QueryServiceInterface, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service:   service,
		startTime: time.Now(),
		logger:    logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /healthz. The server is healthy once at least
// one dataset is loaded.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	st := h.service.Status()
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Datasets:  st,
	}
	if !st.StdevLoaded && !st.RatesLoaded {
		resp.Status = "unavailable"
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
