package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//
// Fakes implementing the pgConnLike seam. No sockets involved.
//

// fakeRows serves a fixed list of integer ids through the pgx.Rows interface.
type fakeRows struct {
	ids     []int
	pos     int
	scanErr error
	rowsErr error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.rowsErr }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	if r.pos >= len(r.ids) {
		return false
	}
	r.pos++
	return true
}
func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	if len(dest) != 1 {
		return fmt.Errorf("want 1 dest, got %d", len(dest))
	}
	p, ok := dest[0].(*int)
	if !ok {
		return fmt.Errorf("want *int dest, got %T", dest[0])
	}
	*p = r.ids[r.pos-1]
	return nil
}
func (r *fakeRows) Values() ([]any, error) { return nil, nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

// fakeBatchResults counts Exec calls and can fail the nth one.
type fakeBatchResults struct {
	execs    int
	failAt   int // 1-based Exec call that errors; 0 = never
	execErr  error
	closeErr error
	closed   bool
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	b.execs++
	if b.failAt != 0 && b.execs == b.failAt {
		return pgconn.CommandTag{}, b.execErr
	}
	return pgconn.CommandTag{}, nil
}
func (b *fakeBatchResults) Query() (pgx.Rows, error) { return nil, nil }
func (b *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (b *fakeBatchResults) Close() error {
	b.closed = true
	return b.closeErr
}

// fakePgConn records queries and batches.
type fakePgConn struct {
	queryRows *fakeRows
	queryErr  error
	querySQL  []string

	sentBatch *pgx.Batch
	results   *fakeBatchResults

	closed bool
}

func (c *fakePgConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.querySQL = append(c.querySQL, sql)
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.queryRows, nil
}
func (c *fakePgConn) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	c.sentBatch = b
	return c.results
}
func (c *fakePgConn) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

//
// LoadTaxiIDs
//

func TestPgLoadTaxiIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rows := &fakeRows{ids: []int{1, 2, 7}}
	conn := &fakePgConn{queryRows: rows}
	st := newPgStoreFromConn(conn, nil)

	ids, err := st.LoadTaxiIDs(ctx)
	if err != nil {
		t.Fatalf("LoadTaxiIDs err: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}
	for _, want := range []int{1, 2, 7} {
		if _, ok := ids[want]; !ok {
			t.Errorf("id %d missing from set", want)
		}
	}
	if len(conn.querySQL) != 1 || !strings.Contains(conn.querySQL[0], "FROM api.taxis") {
		t.Errorf("unexpected query: %v", conn.querySQL)
	}
	if !rows.closed {
		t.Error("rows not closed")
	}
}

func TestPgLoadTaxiIDs_QueryError(t *testing.T) {
	t.Parallel()

	conn := &fakePgConn{queryErr: errors.New("boom")}
	st := newPgStoreFromConn(conn, nil)

	if _, err := st.LoadTaxiIDs(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestPgLoadTaxiIDs_RowsError(t *testing.T) {
	t.Parallel()

	rows := &fakeRows{ids: []int{1}, rowsErr: errors.New("conn reset")}
	conn := &fakePgConn{queryRows: rows}
	st := newPgStoreFromConn(conn, nil)

	if _, err := st.LoadTaxiIDs(context.Background()); err == nil {
		t.Fatal("expected rows error to propagate")
	}
}

//
// CopyTaxis
//

func TestPgCopyTaxis(t *testing.T) {
	t.Parallel()

	var gotSQL, gotBody string
	copyIn := func(ctx context.Context, src io.Reader, sql string) (int64, error) {
		b, err := io.ReadAll(src)
		if err != nil {
			return 0, err
		}
		gotSQL, gotBody = sql, string(b)
		return 2, nil
	}
	st := newPgStoreFromConn(&fakePgConn{}, copyIn)

	n, err := st.CopyTaxis(context.Background(), strings.NewReader("1,ABC-123\n2,XYZ-987\n"))
	if err != nil {
		t.Fatalf("CopyTaxis err: %v", err)
	}
	if n != 2 {
		t.Errorf("rows copied = %d, want 2", n)
	}
	if !strings.Contains(gotSQL, "COPY api.taxis (id, plate) FROM STDIN") {
		t.Errorf("unexpected COPY sql: %q", gotSQL)
	}
	if gotBody != "1,ABC-123\n2,XYZ-987\n" {
		t.Errorf("file content altered before COPY: %q", gotBody)
	}
}

func TestPgCopyTaxis_Error(t *testing.T) {
	t.Parallel()

	copyErr := errors.New(`duplicate key value violates unique constraint "taxis_pkey"`)
	copyIn := func(context.Context, io.Reader, string) (int64, error) { return 0, copyErr }
	st := newPgStoreFromConn(&fakePgConn{}, copyIn)

	if _, err := st.CopyTaxis(context.Background(), strings.NewReader("1,AAA\n")); !errors.Is(err, copyErr) {
		t.Fatalf("expected wrapped copy error, got %v", err)
	}
}

//
// InsertTrajectories
//

func trajRow(id int) []interface{} {
	return []interface{}{id, time.Date(2008, 2, 2, 15, 36, 8, 0, time.UTC), 116.51172, 39.92123}
}

func TestPgInsertTrajectories(t *testing.T) {
	t.Parallel()

	res := &fakeBatchResults{}
	conn := &fakePgConn{results: res}
	st := newPgStoreFromConn(conn, nil)

	rows := [][]interface{}{trajRow(1), trajRow(2), trajRow(3)}
	if err := st.InsertTrajectories(context.Background(), rows); err != nil {
		t.Fatalf("InsertTrajectories err: %v", err)
	}
	if conn.sentBatch == nil || conn.sentBatch.Len() != 3 {
		t.Fatalf("batch len = %v, want 3 queued inserts", conn.sentBatch)
	}
	for i, q := range conn.sentBatch.QueuedQueries {
		if !strings.Contains(q.SQL, "INSERT INTO api.trajectories") {
			t.Errorf("queued query %d: unexpected sql %q", i, q.SQL)
		}
		if len(q.Arguments) != 4 {
			t.Errorf("queued query %d: %d args, want 4", i, len(q.Arguments))
		}
	}
	if res.execs != 3 {
		t.Errorf("Exec called %d times, want 3", res.execs)
	}
	if !res.closed {
		t.Error("batch results not closed")
	}
}

func TestPgInsertTrajectories_EmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	conn := &fakePgConn{}
	st := newPgStoreFromConn(conn, nil)

	if err := st.InsertTrajectories(context.Background(), nil); err != nil {
		t.Fatalf("empty batch err: %v", err)
	}
	if conn.sentBatch != nil {
		t.Error("SendBatch must not be called for an empty batch")
	}
}

func TestPgInsertTrajectories_ExecError(t *testing.T) {
	t.Parallel()

	insErr := errors.New("fk violation")
	res := &fakeBatchResults{failAt: 2, execErr: insErr}
	conn := &fakePgConn{results: res}
	st := newPgStoreFromConn(conn, nil)

	err := st.InsertTrajectories(context.Background(), [][]interface{}{trajRow(1), trajRow(2), trajRow(3)})
	if !errors.Is(err, insErr) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
	if !res.closed {
		t.Error("batch results must be closed on error")
	}
}

func TestPgClose(t *testing.T) {
	t.Parallel()

	conn := &fakePgConn{}
	st := newPgStoreFromConn(conn, nil)
	if err := st.Close(context.Background()); err != nil {
		t.Fatalf("Close err: %v", err)
	}
	if !conn.closed {
		t.Error("underlying connection not closed")
	}
}
