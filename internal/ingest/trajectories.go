package ingest

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gpsload/internal/db"
)

const (
	trajColumns = 4                     // taxi_id,date,latitude,longitude
	dateLayout  = "2006-01-02 15:04:05" // timestamp literal, e.g. 2008-02-02 15:36:08
	// Generous line buffer; trajectory rows are short but files are large.
	readBufferBytes = 4 << 20
)

// InsertTrajectoryFile reads one trajectory CSV (no header) line by line,
// drops rows whose taxi id is not in validIDs, and inserts the rest in
// batches of batchSize parameterized rows, with one final flush for the
// remainder.
//
// The id filter is checked before the remaining fields are parsed, so a
// filtered row never fails the file no matter what its other columns hold.
// For rows that pass the filter, any parse failure (malformed timestamp,
// non-numeric coordinate) aborts the file; batches already executed stay
// committed.
func InsertTrajectoryFile(ctx context.Context, st db.Store, path string, validIDs map[int]struct{}, batchSize int) (inserted, skipped int, err error) {
	if batchSize <= 0 {
		return 0, 0, fmt.Errorf("trajectories %s: batch size %d must be positive", path, batchSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open trajectory csv %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), readBufferBytes)

	batch := make([][]interface{}, 0, batchSize)
	batchCount := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := st.InsertTrajectories(ctx, batch); err != nil {
			return fmt.Errorf("insert batch failed for file %s: %w", path, err)
		}
		inserted += len(batch)
		batch = batch[:0]
		batchCount++
		log.Printf("executed batch %d for file: %s", batchCount, path)
		return nil
	}

	lineNum := 0
	for sc.Scan() {
		lineNum++
		fields := strings.Split(sc.Text(), ",")
		if len(fields) != trajColumns {
			return inserted, skipped, fmt.Errorf("trajectories %s:%d: want %d fields, got %d", path, lineNum, trajColumns, len(fields))
		}

		taxiID, err := strconv.Atoi(fields[0])
		if err != nil {
			return inserted, skipped, fmt.Errorf("trajectories %s:%d: invalid taxi id %q: %w", path, lineNum, fields[0], err)
		}
		if _, ok := validIDs[taxiID]; !ok {
			skipped++
			continue
		}

		ts, err := time.Parse(dateLayout, fields[1])
		if err != nil {
			return inserted, skipped, fmt.Errorf("trajectories %s:%d: invalid date %q: %w", path, lineNum, fields[1], err)
		}
		lat, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return inserted, skipped, fmt.Errorf("trajectories %s:%d: invalid latitude %q: %w", path, lineNum, fields[2], err)
		}
		lon, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return inserted, skipped, fmt.Errorf("trajectories %s:%d: invalid longitude %q: %w", path, lineNum, fields[3], err)
		}

		batch = append(batch, []interface{}{taxiID, ts, lat, lon})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return inserted, skipped, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return inserted, skipped, fmt.Errorf("read trajectory csv %s: %w", path, err)
	}

	// Final flush for the remainder (0 <= remainder < batchSize).
	if err := flush(); err != nil {
		return inserted, skipped, err
	}
	return inserted, skipped, nil
}
