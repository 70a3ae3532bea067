// Package logger builds the zerolog root logger for the ledger service.
// Components derive their own sub-loggers from it with .With().Str(...).
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level  string // zerolog level name; unknown values fall back to info
	Pretty bool   // human-readable console output for dev mode
}

// New creates the root logger. The level is scoped to the returned logger
// rather than the zerolog global, so tests can run quiet loggers alongside.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}
