package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS activity (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT NOT NULL UNIQUE,
    scope        TEXT NOT NULL,
    ts           INTEGER NOT NULL,
    action       TEXT NOT NULL,
    status       TEXT NOT NULL,
    details      TEXT NOT NULL DEFAULT '',
    room_name    TEXT NOT NULL DEFAULT '',
    api_response TEXT
);
CREATE INDEX IF NOT EXISTS idx_activity_scope_seq ON activity(scope, seq);

CREATE TABLE IF NOT EXISTS preferences (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLiteStore: журнал в файле, переживает рестарт.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// один писатель
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, e Entry, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activity (id, scope, ts, action, status, details, room_name, api_response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Scope, e.Timestamp.UnixMilli(), e.Action, string(e.Status), e.Details, e.RoomName, nullJSON(e.APIResponse),
	)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	if keep > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM activity
			WHERE scope = ? AND seq NOT IN (
				SELECT seq FROM activity WHERE scope = ? ORDER BY seq DESC LIMIT ?
			)`, e.Scope, e.Scope, keep)
		if err != nil {
			return fmt.Errorf("evict: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Update(ctx context.Context, id string, p Patch) (Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback()

	e, err := scanEntry(tx.QueryRowContext(ctx, `
		SELECT id, scope, ts, action, status, details, room_name, api_response
		FROM activity WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: activity %s", errs.ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, err
	}

	p.apply(&e)
	_, err = tx.ExecContext(ctx, `
		UPDATE activity SET action = ?, status = ?, details = ?, room_name = ?, api_response = ?
		WHERE id = ?`,
		e.Action, string(e.Status), e.Details, e.RoomName, nullJSON(e.APIResponse), id,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("update: %w", err)
	}
	return e, tx.Commit()
}

func (s *SQLiteStore) List(ctx context.Context, scope string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope, ts, action, status, details, room_name, api_response
		FROM activity WHERE scope = ? ORDER BY seq DESC LIMIT ?`, scope, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope, ts, action, status, details, room_name, api_response
		FROM activity ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (s *SQLiteStore) Clear(ctx context.Context, scope string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM activity WHERE scope = ?`, scope)
	return err
}

func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (json.RawMessage, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: preference %s", errs.ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(v), nil
}

func (s *SQLiteStore) PutPreference(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UnixMilli())
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var (
		e      Entry
		ts     int64
		status string
		resp   sql.NullString
	)
	if err := r.Scan(&e.ID, &e.Scope, &ts, &e.Action, &status, &e.Details, &e.RoomName, &resp); err != nil {
		return Entry{}, err
	}
	e.Timestamp = time.UnixMilli(ts).UTC()
	e.Status = Status(status)
	if resp.Valid && resp.String != "" {
		e.APIResponse = json.RawMessage(resp.String)
	}
	return e, nil
}

func collect(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
