package http

import (
	"context"
	"time"

	"pricecalc/internal/services"
	"pricecalc/pkg/contracts/domain"
)

// QueryServiceInterface defines the query operations the handlers use
type QueryServiceInterface interface {
	Status() services.QueryStatus
	StdevAt(ctx context.Context, securityID string, pt domain.PriceType, snap time.Time) (domain.RollingStdev, error)
	StdevRange(ctx context.Context, start, end time.Time, securities []string) ([]domain.RollingStdev, error)
	ConvertPrices(ctx context.Context, prices []domain.PriceObservation) ([]domain.ConvertedPrice, error)
}
