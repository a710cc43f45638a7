// This file contains the MSSQL adapter. SQL Server has no COPY FROM STDIN
// equivalent on the wire, so the taxi bulk load parses the CSV client-side
// and feeds typed rows through the driver's bulk-copy statement
// (mssql.CopyIn). Trajectory batches use a prepared INSERT executed per row
// inside one transaction, mirroring the portable path the Postgres adapter
// takes with pgx.Batch.
package db

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	mssql "github.com/microsoft/go-mssqldb"
)

const msInsertTrajSQL = `INSERT INTO api.trajectories (taxi_id, date, latitude, longitude) VALUES (@p1, @p2, @p3, @p4)`

type msStore struct {
	db *sql.DB
}

// NewMSStore opens a SQL Server connection and pings to confirm
// connectivity before any file is touched.
func NewMSStore(ctx context.Context, dsn string) (Store, error) {
	d, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, err
	}
	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}
	return &msStore{db: d}, nil
}

func (m *msStore) LoadTaxiIDs(ctx context.Context) (map[int]struct{}, error) {
	rows, err := m.db.QueryContext(ctx, selectTaxiIDsSQL)
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

// taxiRecord is one parsed (id, plate) CSV row.
type taxiRecord struct {
	id    int
	plate string
}

// parseTaxiRecords reads id,plate CSV rows (no header) from src. Any
// malformed row — wrong column count, non-integer id — fails the whole
// parse, matching the all-or-nothing semantics of the Postgres COPY path.
func parseTaxiRecords(src io.Reader) ([]taxiRecord, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = 2

	var out []taxiRecord
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		id, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("taxi id %q: %w", rec[0], err)
		}
		out = append(out, taxiRecord{id: id, plate: rec[1]})
	}
}

// CopyTaxis bulk-copies the parsed rows in one transaction. Nothing is
// committed when any row fails.
func (m *msStore) CopyTaxis(ctx context.Context, src io.Reader) (int64, error) {
	records, err := parseTaxiRecords(src)
	if err != nil {
		return 0, fmt.Errorf("copy taxis: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("copy taxis: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn("api.taxis", mssql.BulkOptions{}, "id", "plate"))
	if err != nil {
		return 0, fmt.Errorf("copy taxis: prepare bulk copy: %w", err)
	}
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.id, rec.plate); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy taxis: queue row: %w", err)
		}
	}
	// The final Exec with no args flushes the bulk copy and reports the count.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("copy taxis: flush bulk copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("copy taxis: close bulk copy: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("copy taxis: commit: %w", err)
	}
	return n, nil
}

func (m *msStore) InsertTrajectories(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert trajectories: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, msInsertTrajSQL)
	if err != nil {
		return fmt.Errorf("insert trajectories: prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert trajectories: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert trajectories: commit: %w", err)
	}
	return nil
}

func (m *msStore) Close(ctx context.Context) error {
	return m.db.Close()
}
