// Package sqlite persists session keys in a local SQLite file.
//
// It is the default backend for the examctl command: one file per profile,
// surviving process restarts, with every [session.Batch] applied in a single
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/owlenglish/examclient/session"
)

const schema = `CREATE TABLE IF NOT EXISTS session_kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Backend is a [session.Backend] over a SQLite database.
type Backend struct {
	sqlDB *sql.DB
}

// Open opens and migrates the session database at path.
func Open(path string) (*Backend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Backend{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (b *Backend) Close() error {
	if b == nil || b.sqlDB == nil {
		return nil
	}
	return b.sqlDB.Close()
}

// Read returns the present values among keys.
func (b *Backend) Read(ctx context.Context, keys []string) (map[string]string, error) {
	if b == nil || b.sqlDB == nil {
		return nil, fmt.Errorf("%w: storage is not configured", session.ErrBackendUnavailable)
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := b.sqlDB.QueryContext(ctx,
		`SELECT key, value FROM session_kv WHERE key IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: read keys: %v", session.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: scan key: %v", session.ErrBackendUnavailable, err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate keys: %v", session.ErrBackendUnavailable, err)
	}
	return out, nil
}

// Apply writes batch in one transaction.
func (b *Backend) Apply(ctx context.Context, batch session.Batch) (err error) {
	if b == nil || b.sqlDB == nil {
		return fmt.Errorf("%w: storage is not configured", session.ErrBackendUnavailable)
	}
	if len(batch.Set) == 0 && len(batch.Delete) == 0 {
		return nil
	}

	tx, err := b.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", session.ErrBackendUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, key := range batch.Delete {
		if _, err = tx.ExecContext(ctx, `DELETE FROM session_kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("%w: delete %s: %v", session.ErrBackendUnavailable, key, err)
		}
	}
	for key, value := range batch.Set {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO session_kv (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("%w: put %s: %v", session.ErrBackendUnavailable, key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", session.ErrBackendUnavailable, err)
	}
	return nil
}

var _ session.Backend = (*Backend)(nil)
