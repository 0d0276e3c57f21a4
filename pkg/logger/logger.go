// Package logger builds the root zerolog logger every service logger
// derives from via With().Str("service", ...).
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the verbosity and output format.
type Config struct {
	Level  string // zerolog level name; unknown or empty means info
	Pretty bool   // human console output instead of JSON lines
}

// New configures the global zerolog state and returns the root logger.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetGlobalLogger replaces the zerolog package-level default so code
// using log.Logger directly shares the configured output.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
