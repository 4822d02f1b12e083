package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/config"
)

// New builds the root logger for the portal service. Development runs
// the human-readable console writer; every other environment emits raw
// JSON for the log pipeline. Subsystems derive their own loggers from
// this one with a "component" field.
func New(cfg *config.Config) zerolog.Logger {
	return build(cfg, os.Stdout)
}

func build(cfg *config.Config, sink io.Writer) zerolog.Logger {
	out := sink
	if cfg.Environment == "development" {
		out = zerolog.ConsoleWriter{
			Out:        sink,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Logger().
		Level(parseLevel(cfg.LogLevel))

	// Call sites are only worth paying for when debugging.
	if logger.GetLevel() <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// parseLevel falls back to info rather than failing startup on an
// unknown LOG_LEVEL value.
func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
