// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address for metrics and health,
	// e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite file holding all durable state.
	DBPath string `koanf:"db_path"`

	// VideoID identifies the live broadcast to poll. Required.
	VideoID string `koanf:"video_id"`

	// APIKeys seeds the credential store on startup. Keys already in the
	// store keep their state.
	APIKeys []string `koanf:"api_keys"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the in-memory cache of recently seen event ids.
	DedupeSize int `koanf:"dedupe_size"`

	// DefaultPollIntervalMS is the wait between pages when the upstream
	// suggests none.
	DefaultPollIntervalMS int `koanf:"default_poll_interval_ms"`

	// BackoffMS is the wait before retrying a failed page.
	BackoffMS int `koanf:"backoff_ms"`

	// ProbeIntervalMS is how often inactive credentials are re-probed.
	ProbeIntervalMS int `koanf:"probe_interval_ms"`

	// Effectiveness scales committed points into displayed points.
	Effectiveness float64 `koanf:"effectiveness"`

	// APIBaseURL overrides the upstream API host, mainly for tests.
	APIBaseURL string `koanf:"api_base_url"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		DBPath:                "fanscore.sqlite3",
		EventQueueSize:        10_000,
		WorkerCount:           runtime.NumCPU() * 4,
		DedupeSize:            50_000,
		DefaultPollIntervalMS: 5_000,
		BackoffMS:             10_000,
		ProbeIntervalMS:       300_000,
		Effectiveness:         0.7,
	}
}
