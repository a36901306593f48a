package platform

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogger builds the JSON structured logger every component receives.
// Components never rely on process-global logging state; the returned logger
// is injected explicitly, but it is also set as slog's default for the odd
// library path that logs ambiently.
func InitLogger(level string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFatal reports an unrecoverable error and exits.
func LogFatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
