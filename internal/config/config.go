// Package config holds process configuration for the loader. Settings come
// from a flat list of CLI tokens with environment-variable fallbacks seeding
// the defaults. Recognized tokens are matched by prefix (--type=, --dbname=,
// and so on); anything unrecognized is taken as the positional directory path.
//
// There is deliberately no validation here: a missing or malformed value is
// carried as-is and surfaces as a downstream failure (connect error, read-dir
// error). The password is never a flag; it is prompted interactively and set
// on the Config by the caller.
//
// For tests, Parse takes the arg slice and a getenv func, so nothing touches
// the real process environment:
//
//	cfg := config.Parse([]string{"--type=taxis", "./data"}, func(string) string { return "" })
package config

import (
	"log"
	"strconv"
	"strings"
)

// DefaultBatchSize is the number of trajectory rows accumulated before a
// batch is executed.
const DefaultBatchSize = 1000

// Config is plain data; it is populated once by Parse and not mutated
// afterwards except for Password, which the caller fills in after the
// interactive prompt.
type Config struct {
	Dir  string // Positional directory path holding the CSV files.
	Type string // Ingestion mode: "taxis" or "trajectories".

	Driver   string // Database driver: "postgres" or "mssql".
	DSN      string // Full DSN override; when empty one is built from the parts below.
	DBName   string
	Host     string
	Port     string
	Username string
	Password string // Set after the prompt; never sourced from a flag.

	BatchSize int // Rows per trajectory insert batch.
}

// Parse builds a Config from args. Environment values (via getenv) seed the
// defaults; explicit tokens override them. Any token that matches none of
// the recognized prefixes becomes the directory path (last one wins).
func Parse(args []string, getenv func(string) string) *Config {
	envOrDefault := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}

	cfg := &Config{
		Driver:    envOrDefault("DB_DRIVER", "postgres"),
		DSN:       getenv("DB_DSN"),
		DBName:    getenv("DB_NAME"),
		Host:      getenv("DB_HOST"),
		Port:      getenv("DB_PORT"),
		Username:  getenv("DB_USER"),
		BatchSize: DefaultBatchSize,
	}
	if v := getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}

	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--type="):
			cfg.Type = strings.TrimPrefix(arg, "--type=")
		case strings.HasPrefix(arg, "--dbname="):
			cfg.DBName = strings.TrimPrefix(arg, "--dbname=")
		case strings.HasPrefix(arg, "--host="):
			cfg.Host = strings.TrimPrefix(arg, "--host=")
		case strings.HasPrefix(arg, "--port="):
			cfg.Port = strings.TrimPrefix(arg, "--port=")
		case strings.HasPrefix(arg, "--username="):
			cfg.Username = strings.TrimPrefix(arg, "--username=")
		case strings.HasPrefix(arg, "--driver="):
			cfg.Driver = strings.TrimPrefix(arg, "--driver=")
		case strings.HasPrefix(arg, "--dsn="):
			cfg.DSN = strings.TrimPrefix(arg, "--dsn=")
		case strings.HasPrefix(arg, "--batch-size="):
			if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--batch-size=")); err == nil && n > 0 {
				cfg.BatchSize = n
			}
		default:
			cfg.Dir = arg
		}
	}
	return cfg
}

// BuildDSN returns the connection string for the configured driver. An
// explicit --dsn always wins. No part is validated or escaped beyond what
// the drivers themselves do.
func (c *Config) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case "mssql":
		return "sqlserver://" + c.Username + ":" + c.Password + "@" + c.Host + ":" + c.Port + "?database=" + c.DBName
	default:
		return "postgres://" + c.Username + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName
	}
}

// Log echoes every parsed setting. The password is redacted; it never
// appears in console output, process listings, or shell history.
func (c *Config) Log() {
	log.Printf("directory: %s", c.Dir)
	log.Printf("type: %s", c.Type)
	log.Printf("driver: %s", c.Driver)
	log.Printf("database name: %s", c.DBName)
	log.Printf("host: %s", c.Host)
	log.Printf("port: %s", c.Port)
	log.Printf("username: %s", c.Username)
	log.Printf("batch size: %d", c.BatchSize)
	log.Printf("password: %s", redact(c.Password))
}

func redact(pw string) string {
	if pw == "" {
		return "Not provided"
	}
	return "*******"
}
