package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pricecalc/pkg/contracts/domain"
)

// MockSink is a mock for the exporter.Sink interface
type MockSink struct {
	mock.Mock
}

func (m *MockSink) WriteRates(ctx context.Context, results []domain.ConvertedPrice) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}

func (m *MockSink) WriteStdev(ctx context.Context, results []domain.RollingStdev) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}
