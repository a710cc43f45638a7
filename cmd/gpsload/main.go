// Command gpsload bulk-loads GPS fleet CSV data into a relational database.
//
// Two ingestion modes, selected with --type=:
//
//	taxis         stream each id,plate CSV straight into the taxi table
//	              via the engine's bulk-load protocol
//	trajectories  read each taxi_id,date,latitude,longitude CSV line by
//	              line, drop rows referencing unknown taxi ids, and insert
//	              the rest in fixed-size parameterized batches
//
// Usage:
//
//	gpsload data/taxis/ --type=taxis --dbname=api_fleet_db --host=localhost --port=5432 --username=api_admin
//	gpsload data/trajectories-02/ --type=trajectories --dbname=api_fleet_db --host=localhost --port=5432 --username=api_admin
//
// The password is always prompted interactively with echo disabled; it is
// never accepted as a flag. The whole run uses one connection: connect, load
// the set of known taxi ids once, process every file in the directory in
// listing order, close. Any error past the top-level connect is fatal to the
// run; committed batches stay committed.
//
// main() stays tiny and delegates to run() with injected Deps so the control
// flow is testable without a terminal or a database.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"gpsload/internal/config"
	"gpsload/internal/db"
	"gpsload/internal/ingest"
	"gpsload/internal/prompt"
)

// Deps holds the injectable boundaries of run(): store constructors, the
// interactive password reader, and the directory processor.
type Deps struct {
	NewPgStore db.StoreFactory
	NewMSStore db.StoreFactory

	ReadPassword func(label string) (string, error)

	ProcessDir func(ctx context.Context, st db.Store, dir, mode string, validIDs map[int]struct{}, batchSize int) error
}

// defaultDeps wires the production implementations.
func defaultDeps() Deps {
	return Deps{
		NewPgStore:   db.NewPgStore,
		NewMSStore:   db.NewMSStore,
		ReadPassword: prompt.Password,
		ProcessDir:   ingest.ProcessDir,
	}
}

// run executes one load: prompt the password, echo the settings, open the
// store for the configured driver, snapshot the valid taxi ids, and walk the
// directory. The returned error, if any, ends the process.
func run(ctx context.Context, cfg *config.Config, deps Deps) error {
	var factory db.StoreFactory
	switch cfg.Driver {
	case "postgres":
		factory = deps.NewPgStore
	case "mssql":
		factory = deps.NewMSStore
	default:
		return fmt.Errorf("unsupported --driver=%q (want postgres or mssql)", cfg.Driver)
	}

	pw, err := deps.ReadPassword("Enter password: ")
	if err != nil {
		return fmt.Errorf("password prompt: %w", err)
	}
	cfg.Password = pw
	cfg.Log()

	st, err := factory(ctx, cfg.BuildDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to the database server: %w", err)
	}
	log.Printf("connected to the %s server", cfg.Driver)
	defer st.Close(ctx)

	// The validity snapshot is taken once, before any file is read. Taxis
	// created during the run stay invisible to the trajectory filter.
	validIDs, err := st.LoadTaxiIDs(ctx)
	if err != nil {
		return fmt.Errorf("load taxi ids: %w", err)
	}
	log.Printf("loaded total of taxi ids: %d", len(validIDs))

	return deps.ProcessDir(ctx, st, cfg.Dir, cfg.Type, validIDs, cfg.BatchSize)
}

func main() {
	_ = godotenv.Load()

	cfg := config.Parse(os.Args[1:], os.Getenv)
	if err := run(context.Background(), cfg, defaultDeps()); err != nil {
		log.Fatal(err)
	}
}
