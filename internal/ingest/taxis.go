package ingest

import (
	"context"
	"fmt"
	"log"
	"os"

	"gpsload/internal/db"
)

// CopyTaxiFile streams one id,plate CSV file (no header) into the taxi table
// through the store's bulk-load path. The load is all-or-nothing: a malformed
// row or a duplicate id fails the whole file and commits zero rows from it.
func CopyTaxiFile(ctx context.Context, st db.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open taxi csv %s: %w", path, err)
	}
	defer f.Close()

	n, err := st.CopyTaxis(ctx, f)
	if err != nil {
		return fmt.Errorf("bulk copy failed for file %s: %w", path, err)
	}
	log.Printf("taxi data copied (%d rows) for file: %s", n, path)
	return nil
}
