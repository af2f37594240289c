package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/yanqian/allergy-risk/internal/infra/config"
)

// New constructs the process wide slog logger from the logging config.
func New(cfg *config.Config) *slog.Logger {
	return newWithWriter(cfg.Logging, os.Stdout)
}

func newWithWriter(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("service", "allergy-risk")
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
