// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, then an optional .env file, then an
// optional YAML file named by ACERACE_CONFIG, then ACERACE_* variables.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// DBDriver is "sqlite" or "postgres".
	DBDriver string `koanf:"db_driver"`

	// DBDSN is a file path (or :memory:) for sqlite and a URL for postgres.
	DBDSN string `koanf:"db_dsn"`

	// EventQueueSize bounds the in-memory result queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the result event id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RoundPoints maps tournament rounds to the points a picker earns.
	RoundPoints map[string]float64 `koanf:"round_points"`

	// DefaultRoundPoints is used for rounds missing from RoundPoints.
	DefaultRoundPoints float64 `koanf:"default_round_points"`

	// AllowedOrigins lists browser origins allowed by CORS.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// AdminSecret signs admin bearer tokens. Empty leaves admin routes open.
	AdminSecret string `koanf:"admin_secret"`

	// SeedFile optionally names a YAML file of tournaments and draws.
	SeedFile string `koanf:"seed_file"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":8000",
		DBDriver:       "sqlite",
		DBDSN:          "acerace.db",
		EventQueueSize: 10_000,
		WorkerCount:    runtime.NumCPU(),
		DedupeSize:     100_000,
		RoundPoints: map[string]float64{
			"r128": 1,
			"r64":  2,
			"r32":  3,
			"r16":  5,
			"qf":   8,
			"sf":   13,
			"f":    21,
			"w":    34,
		},
		DefaultRoundPoints: 0,
		AllowedOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
	}
}
