// Package config defines service configuration and its loader.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// CORSAllowedOrigins lists origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Storage selects the backend: sqlite or memory.
	Storage string `koanf:"storage"`
	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// QueueSize bounds the recompute queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`
	// RecomputeParallelism bounds squads scored at once per episode.
	RecomputeParallelism int `koanf:"recompute_parallelism"`
	// DedupeSize caps tracked pending recompute keys.
	DedupeSize int `koanf:"dedupe_size"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		ShutdownTimeout:      15 * time.Second,
		CORSAllowedOrigins:   []string{"*"},
		MaxLeaderboardLimit:  100,
		Storage:              "sqlite",
		DBPath:               "fantabrigade.db",
		QueueSize:            1024,
		WorkerCount:          runtime.NumCPU(),
		RecomputeParallelism: 8,
		DedupeSize:           10_000,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.Storage != "sqlite" && c.Storage != "memory":
		return invalid("storage must be sqlite or memory, got %q", c.Storage)
	case c.Storage == "sqlite" && c.DBPath == "":
		return invalid("db_path is required for sqlite storage")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	case c.QueueSize < 1:
		return invalid("queue_size must be positive")
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive")
	case c.RecomputeParallelism < 1:
		return invalid("recompute_parallelism must be positive")
	case c.MaxLeaderboardLimit < 1:
		return invalid("max_leaderboard_limit must be positive")
	}
	return nil
}
