package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	tableRates = "rates_results"
	tableStdev = "stdev_results"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rates_results (
		run_id         TEXT             NOT NULL,
		row_index      INTEGER          NOT NULL,
		security_id    TEXT             NOT NULL DEFAULT '',
		pair_id        TEXT             NOT NULL,
		ts             TIMESTAMPTZ      NOT NULL,
		original_price DOUBLE PRECISION NOT NULL,
		final_price    DOUBLE PRECISION,
		status         TEXT             NOT NULL,
		PRIMARY KEY (run_id, row_index)
	)`,
	`CREATE TABLE IF NOT EXISTS stdev_results (
		run_id      TEXT             NOT NULL,
		security_id TEXT             NOT NULL,
		snap_time   TIMESTAMPTZ      NOT NULL,
		price_type  TEXT             NOT NULL,
		stdev       DOUBLE PRECISION,
		status      TEXT             NOT NULL,
		PRIMARY KEY (run_id, security_id, price_type, snap_time)
	)`,
}

// EnsureSchema creates the result tables when missing
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
