package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "pricecalc/internal/errors"
	"pricecalc/pkg/contracts/domain"
)

// MaxConvertBatch bounds the number of prices in one convert request
const MaxConvertBatch = 10000

// PriceRequest is one row of a convert request
type PriceRequest struct {
	PairID     string    `json:"pair_id" validate:"required"`
	SecurityID string    `json:"security_id,omitempty"`
	Timestamp  time.Time `json:"timestamp" validate:"required"`
	Price      *float64  `json:"price" validate:"required"`
}

type convertRequest struct {
	Prices []PriceRequest `validate:"required,min=1,max=10000,dive"`
}

// RatesHandler serves ad hoc price conversion
type RatesHandler struct {
	service      QueryServiceInterface
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRatesHandler creates a new rates handler
func NewRatesHandler(service QueryServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RatesHandler {
	return &RatesHandler{
		service:      service,
		validate:     validator.New(),
		logger:       logger.With(slog.String("component", "rates_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the rates routes
func (h *RatesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/convert", h.Convert)
	return r
}

// Convert handles POST /api/v1/rates/convert. Results come back in
// request order.
func (h *RatesHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var rows []PriceRequest
	if err := render.DecodeJSON(r.Body, &rows); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(convertRequest{Prices: rows}); err != nil {
		h.errorHandler.HandleError(w, r, validationError(err, "convertRequest."))
		return
	}

	prices := make([]domain.PriceObservation, len(rows))
	for i, row := range rows {
		prices[i] = domain.PriceObservation{
			PairID:     row.PairID,
			SecurityID: row.SecurityID,
			Timestamp:  row.Timestamp.UTC(),
			Price:      *row.Price,
		}
	}

	results, err := h.service.ConvertPrices(r.Context(), prices)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	h.logger.DebugContext(r.Context(), "prices converted", slog.Int("rows", len(results)))
	render.JSON(w, r, results)
}
