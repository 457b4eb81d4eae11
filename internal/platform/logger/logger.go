package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger using slog. Local environments log
// at debug level so every invocation line is visible.
func New(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "local" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
