package activity

import (
	"context"
	"fmt"
)

// Open выбирает бэкенд по имени: memory | sqlite | postgres.
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(dsn)
	case "postgres":
		pool, err := NewPool(ctx, PoolConfig{DSN: dsn, MaxConns: 4, ApplicationName: "voice-testbench"})
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		st, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
