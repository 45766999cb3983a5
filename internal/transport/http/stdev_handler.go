package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "pricecalc/internal/errors"
	"pricecalc/internal/loader"
	"pricecalc/pkg/contracts/domain"
)

// StdevHandler serves rolling stdev queries
type StdevHandler struct {
	service      QueryServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewStdevHandler creates a new stdev handler
func NewStdevHandler(service QueryServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *StdevHandler {
	return &StdevHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "stdev_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the stdev routes
func (h *StdevHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetRange)
	r.Get("/{securityID}/{priceType}", h.GetPoint)
	return r
}

// GetPoint handles GET /api/v1/stdev/{securityID}/{priceType}?snap_time=
func (h *StdevHandler) GetPoint(w http.ResponseWriter, r *http.Request) {
	securityID := chi.URLParam(r, "securityID")
	pt, ok := domain.ParsePriceType(chi.URLParam(r, "priceType"))
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("priceType", "must be one of bid, mid, ask"))
		return
	}

	snap, err := queryTime(r, "snap_time")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.StdevAt(r.Context(), securityID, pt, snap)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, result)
}

// GetRange handles GET /api/v1/stdev?start=&end=&security_id=
func (h *StdevHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	start, err := queryTime(r, "start")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	end, err := queryTime(r, "end")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	securities := securityFilter(r.URL.Query()["security_id"])
	results, err := h.service.StdevRange(r.Context(), start, end, securities)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	if results == nil {
		results = []domain.RollingStdev{}
	}

	h.logger.DebugContext(r.Context(), "stdev range served",
		slog.Int("securities", len(securities)),
		slog.Int("rows", len(results)))
	render.JSON(w, r, results)
}

// queryTime reads a required timestamp query parameter
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, apierrors.InvalidParameter(name, "is required")
	}
	t, err := loader.ParseTime(raw)
	if err != nil {
		return time.Time{}, apierrors.InvalidParameter(name, err.Error())
	}
	return t, nil
}

// securityFilter accepts repeated and comma separated security_id values
func securityFilter(values []string) []string {
	var out []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}
