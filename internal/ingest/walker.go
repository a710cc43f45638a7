// Package ingest contains the ingestion routines: a directory walker that
// dispatches each CSV file to the mode-appropriate loader, a raw bulk-copy
// loader for taxi files, and a filtered, batched insert loader for
// trajectory files.
//
// Everything here is sequential by design: one file at a time, one batch in
// flight at a time, over a single shared connection. Any error aborts the
// run; earlier files and earlier committed batches stay committed.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"gpsload/internal/db"
)

// Ingestion modes selected via --type=.
const (
	ModeTaxis        = "taxis"
	ModeTrajectories = "trajectories"
)

// ProcessDir lists the immediate entries of dir (non-recursive), skips
// anything that is not a regular file, and feeds each file to the loader for
// mode. Files are processed in directory-listing order with (i/N) progress,
// where N counts files only.
//
// An unknown mode is an error before any file is touched. The first file
// error aborts the walk.
func ProcessDir(ctx context.Context, st db.Store, dir, mode string, validIDs map[int]struct{}, batchSize int) error {
	switch mode {
	case ModeTaxis, ModeTrajectories:
	default:
		return fmt.Errorf("unsupported --type=%q (want %q or %q)", mode, ModeTaxis, ModeTrajectories)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("invalid directory path %s: %w", dir, err)
	}

	var files []fs.DirEntry
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e)
		}
	}

	for i, e := range files {
		log.Printf("processing file: %s (%d/%d)", e.Name(), i+1, len(files))
		path := filepath.Join(dir, e.Name())

		switch mode {
		case ModeTaxis:
			if err := CopyTaxiFile(ctx, st, path); err != nil {
				return err
			}
		case ModeTrajectories:
			inserted, skipped, err := InsertTrajectoryFile(ctx, st, path, validIDs, batchSize)
			if err != nil {
				return err
			}
			log.Printf("trajectories inserted=%d skipped=%d for file: %s", inserted, skipped, path)
		}
	}
	return nil
}
