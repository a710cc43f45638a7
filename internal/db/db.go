// Package db provides the storage interface used by the ingestion routines
// and its adapters: Postgres (pgx, with native COPY) and MSSQL (database/sql
// with bulk-copy statements). One Store wraps one connection; the whole run
// uses a single connection sequentially.
package db

import (
	"context"
	"io"
)

// Store is the narrow storage surface the loader needs. Every method wraps
// and returns errors directly; there are no retries and no partial-success
// modes anywhere behind this interface.
type Store interface {
	// LoadTaxiIDs fetches every known taxi id into a set. The snapshot is
	// taken once per run; taxis created afterwards stay invisible.
	LoadTaxiIDs(ctx context.Context) (map[int]struct{}, error)

	// CopyTaxis bulk-loads raw CSV content (id,plate rows, no header) into
	// the taxi table and reports the number of rows written. A malformed row
	// or constraint violation fails the whole load; nothing is committed.
	CopyTaxis(ctx context.Context, src io.Reader) (int64, error)

	// InsertTrajectories executes one batch of parameterized inserts. Each
	// row is (taxi_id int, date time.Time, latitude float64, longitude float64).
	InsertTrajectories(ctx context.Context, rows [][]interface{}) error

	Close(ctx context.Context) error
}

// StoreFactory mints a connected Store; the composition layer selects one
// per configured driver.
type StoreFactory func(ctx context.Context, dsn string) (Store, error)
