// Package logtrace provides logging and tracing utilities for the application.
// It integrates with zerolog for structured logging and carries a request id
// through contexts for outbound calls.
package logtrace

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLevel is used when no level or an unknown level is configured.
const DefaultLevel = zerolog.WarnLevel

// InitLogger initializes the global logger writing to stderr with Unix
// millisecond timestamps.
func InitLogger(level string) {
	InitLoggerTo(os.Stderr, level)
}

// InitLoggerTo is InitLogger with an explicit destination.
func InitLoggerTo(w io.Writer, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(level))
}

// ParseLevel converts a level name to a zerolog level, falling back to DefaultLevel.
func ParseLevel(level string) zerolog.Level {
	if strings.TrimSpace(level) == "" {
		return DefaultLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return DefaultLevel
	}
	return l
}
