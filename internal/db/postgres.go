// This file contains the Postgres adapter. It wraps a single pgx.Conn behind
// a small interface seam (pgConnLike) so unit tests can run hermetically
// against a fake connection, with no sockets.
//
// The taxi bulk load uses the wire-level COPY ... FROM STDIN protocol and
// streams the file bytes as-is: the server parses the CSV, so a corrupt row
// or duplicate key aborts the entire (atomic) COPY. Trajectory batches go
// through pgx.Batch, one round trip per batch.
package db

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
)

const (
	selectTaxiIDsSQL = `SELECT id FROM api.taxis`
	copyTaxisSQL     = `COPY api.taxis (id, plate) FROM STDIN WITH (FORMAT csv)`
	insertTrajSQL    = `INSERT INTO api.trajectories (taxi_id, date, latitude, longitude) VALUES ($1, $2, $3, $4)`
)

// pgConnLike is the subset of *pgx.Conn the adapter uses; tests inject a fake.
type pgConnLike interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close(ctx context.Context) error
}

// copyInFunc runs a raw COPY FROM STDIN, feeding src to the server, and
// returns the number of rows copied. The real implementation goes through
// pgconn; tests substitute their own.
type copyInFunc func(ctx context.Context, src io.Reader, sql string) (int64, error)

type pgStore struct {
	conn   pgConnLike
	copyIn copyInFunc
}

// NewPgStore connects to Postgres and wraps the connection in a Store.
// The caller owns the connection lifetime and must Close it.
func NewPgStore(ctx context.Context, dsn string) (Store, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &pgStore{
		conn: c,
		copyIn: func(ctx context.Context, src io.Reader, sql string) (int64, error) {
			tag, err := c.PgConn().CopyFrom(ctx, src, sql)
			if err != nil {
				return 0, err
			}
			return tag.RowsAffected(), nil
		},
	}, nil
}

// LoadTaxiIDs runs a single SELECT over the taxi table and accumulates the
// ids into a set. Duplicates cannot occur (primary key), so plain set
// insertion is enough.
func (p *pgStore) LoadTaxiIDs(ctx context.Context) (map[int]struct{}, error) {
	rows, err := p.conn.Query(ctx, selectTaxiIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("select taxi ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan taxi id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select taxi ids: %w", err)
	}
	return ids, nil
}

// CopyTaxis streams src straight into the COPY protocol.
func (p *pgStore) CopyTaxis(ctx context.Context, src io.Reader) (int64, error) {
	n, err := p.copyIn(ctx, src, copyTaxisSQL)
	if err != nil {
		return 0, fmt.Errorf("copy taxis: %w", err)
	}
	return n, nil
}

// InsertTrajectories queues one parameterized INSERT per row and sends them
// as a single pgx batch. The first failing insert aborts the batch; earlier
// batches from the same file stay committed.
func (p *pgStore) InsertTrajectories(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, row := range rows {
		b.Queue(insertTrajSQL, row...)
	}
	br := p.conn.SendBatch(ctx, b)
	for range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert trajectories: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert trajectories: close batch: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *pgStore) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}

// newPgStoreFromConn builds a pgStore from fakes. Test use only.
func newPgStoreFromConn(c pgConnLike, copyIn copyInFunc) *pgStore {
	return &pgStore{conn: c, copyIn: copyIn}
}
