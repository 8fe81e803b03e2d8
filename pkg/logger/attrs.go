package logger

import (
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// instanceID: задан явно или hostname плюс короткий uuid, чтобы различать рестарты контейнера.
func instanceID(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "testbench"
	}
	return host + "-" + uuid.NewString()[:8]
}

func processAttrs(cfg Config) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("instance_id", cfg.InstanceID),
		slog.Time("started_at", time.Now().UTC()),
		slog.String("go", runtime.Version()),
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return attrs
}
