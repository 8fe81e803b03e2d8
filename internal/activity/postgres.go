package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS testbench_activity (
    seq          BIGSERIAL PRIMARY KEY,
    id           TEXT NOT NULL UNIQUE,
    scope        TEXT NOT NULL,
    ts           TIMESTAMPTZ NOT NULL,
    action       TEXT NOT NULL,
    status       TEXT NOT NULL,
    details      TEXT NOT NULL DEFAULT '',
    room_name    TEXT NOT NULL DEFAULT '',
    api_response JSONB
);
CREATE INDEX IF NOT EXISTS idx_testbench_activity_scope_seq ON testbench_activity(scope, seq);

CREATE TABLE IF NOT EXISTS testbench_preferences (
    key        TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnIdleTime time.Duration
	ApplicationName string
}

// NewPool: *pgxpool.Pool с настройками и проверкой Ping().
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ApplicationName != "" {
		if pc.ConnConfig.RuntimeParams == nil {
			pc.ConnConfig.RuntimeParams = map[string]string{}
		}
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore создаёт таблицы, если их ещё нет.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, e Entry, keep int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO testbench_activity (id, scope, ts, action, status, details, room_name, api_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Scope, e.Timestamp, e.Action, string(e.Status), e.Details, e.RoomName, nullJSON(e.APIResponse),
	)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	if keep > 0 {
		_, err = tx.Exec(ctx, `
			DELETE FROM testbench_activity
			WHERE scope = $1 AND seq NOT IN (
				SELECT seq FROM testbench_activity WHERE scope = $1 ORDER BY seq DESC LIMIT $2
			)`, e.Scope, keep)
		if err != nil {
			return fmt.Errorf("evict: %w", err)
		}
	}
	return tx.Commit(ctx)
}

const pgSelect = `SELECT id, scope, ts, action, status, details, room_name, api_response::text FROM testbench_activity`

func (s *PostgresStore) Update(ctx context.Context, id string, p Patch) (Entry, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Entry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e, err := scanPgEntry(tx.QueryRow(ctx, pgSelect+` WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: activity %s", errs.ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, err
	}

	p.apply(&e)
	_, err = tx.Exec(ctx, `
		UPDATE testbench_activity SET action = $1, status = $2, details = $3, room_name = $4, api_response = $5
		WHERE id = $6`,
		e.Action, string(e.Status), e.Details, e.RoomName, nullJSON(e.APIResponse), id,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("update: %w", err)
	}
	return e, tx.Commit(ctx)
}

func (s *PostgresStore) List(ctx context.Context, scope string, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, pgSelect+` WHERE scope = $1 ORDER BY seq DESC LIMIT $2`, scope, limit)
	if err != nil {
		return nil, err
	}
	return collectPg(rows)
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, pgSelect+` ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectPg(rows)
}

func (s *PostgresStore) Clear(ctx context.Context, scope string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM testbench_activity WHERE scope = $1`, scope)
	return err
}

func (s *PostgresStore) GetPreference(ctx context.Context, key string) (json.RawMessage, error) {
	var v string
	err := s.db.QueryRow(ctx, `SELECT value::text FROM testbench_preferences WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: preference %s", errs.ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(v), nil
}

func (s *PostgresStore) PutPreference(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO testbench_preferences (key, value, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, string(value))
	return err
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func scanPgEntry(r pgx.Row) (Entry, error) {
	var (
		e      Entry
		status string
		resp   *string
	)
	if err := r.Scan(&e.ID, &e.Scope, &e.Timestamp, &e.Action, &status, &e.Details, &e.RoomName, &resp); err != nil {
		return Entry{}, err
	}
	e.Timestamp = e.Timestamp.UTC()
	e.Status = Status(status)
	if resp != nil && *resp != "" {
		e.APIResponse = json.RawMessage(*resp)
	}
	return e, nil
}

func collectPg(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanPgEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
