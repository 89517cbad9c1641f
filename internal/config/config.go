// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the gateway needs to start. All values come
// from THREADGATE_* environment variables; flags on the CLI override
// them per invocation.
type Config struct {
	// DBPath is the SQLite database location. ":memory:" gives an
	// ephemeral store, useful for demos and tests.
	DBPath string `env:"THREADGATE_DB" envDefault:"threadgate.db"`

	// PolicyName selects a registered decision policy by name.
	PolicyName string `env:"THREADGATE_POLICY" envDefault:"ack"`

	// PolicyTimeout bounds a single policy invocation. Zero disables
	// the deadline.
	PolicyTimeout time.Duration `env:"THREADGATE_POLICY_TIMEOUT" envDefault:"30s"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"THREADGATE_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps the configured level name onto a slog.Level. Unknown
// names fall back to info rather than failing startup.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
