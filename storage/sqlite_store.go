package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps the document as one row of a key/value table, the
// way a browser keeps it under a single local-storage key.
type SQLiteBackend struct {
	db  *sql.DB
	key string
}

// OpenSQLite opens (creating if needed) the database at path and stores the
// document under key.
func OpenSQLite(path, key string) (*SQLiteBackend, error) {
	if key == "" {
		key = DefaultKey
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, &PersistenceError{Op: "open", Backend: "sqlite", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, &PersistenceError{Op: "open", Backend: "sqlite", Err: err}
	}
	// A single connection serializes access and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "open", Backend: "sqlite", Err: fmt.Errorf("create table: %w", err)}
	}

	return &SQLiteBackend{db: db, key: key}, nil
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

func (b *SQLiteBackend) Read(ctx context.Context) ([]byte, error) {
	var value string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, b.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "read", Backend: b.Name(), Err: err}
	}
	return []byte(value), nil
}

func (b *SQLiteBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, b.key, string(data), time.Now().UTC())
	if err != nil {
		return &PersistenceError{Op: "write", Backend: b.Name(), Err: err}
	}
	return nil
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }
