package ingest

import (
	"context"
	"io"
)

// fakeStore records every call made by the ingestion routines. It deep-copies
// incoming batches because the loader reuses its batch buffer between flushes.
type fakeStore struct {
	ids     map[int]struct{}
	loadErr error

	copied  []string // raw content handed to CopyTaxis, per call
	copyErr error

	batches   [][][]interface{}
	insertErr error
	failBatch int // 1-based InsertTrajectories call that fails; 0 = never

	closed bool
}

func (f *fakeStore) LoadTaxiIDs(ctx context.Context) (map[int]struct{}, error) {
	return f.ids, f.loadErr
}

func (f *fakeStore) CopyTaxis(ctx context.Context, src io.Reader) (int64, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return 0, err
	}
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copied = append(f.copied, string(b))
	return int64(len(b)), nil
}

func (f *fakeStore) InsertTrajectories(ctx context.Context, rows [][]interface{}) error {
	if f.failBatch != 0 && len(f.batches)+1 == f.failBatch {
		return f.insertErr
	}
	cp := make([][]interface{}, len(rows))
	for i, r := range rows {
		rc := make([]interface{}, len(r))
		copy(rc, r)
		cp[i] = rc
	}
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeStore) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func validSet(ids ...int) map[int]struct{} {
	s := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
