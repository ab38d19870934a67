// Package logger bootstraps the engine's zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the bootstrapped logger's level and output format.
type Config struct {
	Level  string
	Pretty bool
}

// New builds a zerolog.Logger with a global level, RFC3339 timestamps, and
// caller info. Pretty mode writes through a ConsoleWriter for local
// development; the default is structured JSON to stdout.
func New(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetGlobalLogger installs l as zerolog's package-level logger, so
// third-party code that logs through log.Logger picks up our config.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
