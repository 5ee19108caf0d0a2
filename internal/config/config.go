// Package config reads process configuration from the environment and
// builds the default logger.
package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds settings shared by every cae command. CLI flags default to
// these values.
type Config struct {
	LogLevel  slog.Level `env:"CAE_LOG_LEVEL"  envDefault:"info"`
	LogFormat string     `env:"CAE_LOG_FORMAT" envDefault:"text"`

	// DB is the SQLite archive path. Empty disables archiving.
	DB string `env:"CAE_DB"`

	// RedisURL is a redis:// URL narration is published to. Empty
	// disables publishing.
	RedisURL string `env:"CAE_REDIS_URL"`

	// MaxTurns caps a run. Zero means no limit.
	MaxTurns int `env:"CAE_MAX_TURNS" envDefault:"0"`

	// MaxNodes caps the nodes of a single turn. Zero means no limit.
	MaxNodes int `env:"CAE_MAX_NODES" envDefault:"0"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env cannot check on its own.
func (c Config) Validate() error {
	switch c.LogFormat {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("CAE_LOG_FORMAT: unknown format %q (want %s or %s)", c.LogFormat, FormatText, FormatJSON)
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("CAE_MAX_TURNS: must be non-negative, got %d", c.MaxTurns)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("CAE_MAX_NODES: must be non-negative, got %d", c.MaxNodes)
	}
	return nil
}

// SetupLogger builds a text or JSON logger writing to w and installs it as
// the slog default.
func SetupLogger(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogFormat == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
