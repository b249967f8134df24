package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLogLevel overrides the configured level when set.
const EnvLogLevel = "LASERVIEW_LOG_LEVEL"

// New builds the console logger for app and installs it as the global
// zerolog logger.
func New(app, level string) zerolog.Logger {
	return newLogger(os.Stdout, app, level)
}

func newLogger(out io.Writer, app, level string) zerolog.Logger {
	if env := os.Getenv(EnvLogLevel); env != "" {
		level = env
	}
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).
		Level(ParseLevel(level)).
		With().Timestamp().Str("app", app).
		Logger()
	log.Logger = logger
	return logger
}

// ParseLevel accepts trace, debug, info, warn, error and off. Anything
// else is info.
func ParseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
