package logger

import (
	"log/slog"
)

func effectiveLevel(cfg Config) slog.Level {
	if cfg.Debug && cfg.Level == 0 {
		return slog.LevelDebug
	}
	return cfg.Level
}

func newStdHandler(cfg Config) slog.Handler {
	return slog.NewTextHandler(cfg.Output, &slog.HandlerOptions{
		Level:     effectiveLevel(cfg),
		AddSource: cfg.AddSource,
	})
}
