// Package cache memoizes point-in-time rolling stdev answers.
//
// Keys include the fingerprint of the loaded history, so reloading
// different input data never serves stale values.
package cache

import (
	"context"
	"fmt"
	"time"

	"pricecalc/pkg/contracts/domain"
)

// Key identifies one point-in-time stdev answer
type Key struct {
	Fingerprint uint64
	SecurityID  string
	PriceType   domain.PriceType
	SnapTime    time.Time
}

// String renders the key as a Redis key
func (k Key) String() string {
	return fmt.Sprintf("pricecalc:stdev:%016x:%s:%s:%d",
		k.Fingerprint, k.SecurityID, k.PriceType, k.SnapTime.UTC().UnixNano())
}

// StdevCache stores RollingStdev values by key
type StdevCache interface {
	Get(ctx context.Context, key Key) (*domain.RollingStdev, error) // nil, nil on miss
	Set(ctx context.Context, key Key, value domain.RollingStdev) error
	Close() error
}
