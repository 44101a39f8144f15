// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability builds the structured logger and Prometheus
// metrics shared by the engine components.
package observability

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/citelink/pkg/types"
)

// NewLogger returns a zerolog logger writing to w. Format "console" (or
// "pretty") produces human-readable lines; anything else produces JSON.
func NewLogger(cfg types.LoggingConfig, w io.Writer) zerolog.Logger {
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).
		With().
		Timestamp().
		Logger().
		Level(ParseLevel(cfg.Level))
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithCitationContext adds the author and year under lookup to a logger.
func WithCitationContext(logger zerolog.Logger, authors string, year int) zerolog.Logger {
	return logger.With().
		Str("authors", authors).
		Int("year", year).
		Logger()
}

// WithRunContext adds an engine run identifier to a logger.
func WithRunContext(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}
