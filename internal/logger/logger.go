package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger: human-readable console output outside production, JSON in production.
func New(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if env == "production" {
		return zerolog.New(os.Stdout).
			Level(lvl).
			With().
			Timestamp().
			Str("service", "vegprice-service").
			Logger()
	}

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006/01/02 15:04:05"}
	return zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
