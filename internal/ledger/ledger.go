// Package ledger remembers which files a batch run has already processed, keyed
// by path and content hash, in a local SQLite database.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_files (
	path         TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	records      INTEGER NOT NULL,
	method       TEXT NOT NULL,
	processed_at TIMESTAMP NOT NULL
)`

// Entry is one processed file.
type Entry struct {
	Path        string
	ContentHash string
	Records     int
	Method      string
	ProcessedAt time.Time
}

type Ledger struct {
	db *sql.DB
}

// Open creates the ledger file and its table when missing.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger table: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Seen reports whether path was processed with the same content hash.
func (l *Ledger) Seen(ctx context.Context, path, hash string) (bool, error) {
	var stored string
	err := l.db.QueryRowContext(ctx,
		`SELECT content_hash FROM processed_files WHERE path = ?`, path).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return stored == hash, nil
}

// Record stores or replaces the entry for e.Path.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO processed_files (path, content_hash, records, method, processed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			records      = excluded.records,
			method       = excluded.method,
			processed_at = excluded.processed_at`,
		e.Path, e.ContentHash, e.Records, e.Method, e.ProcessedAt)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Path, err)
	}
	return nil
}

// Get returns the entry for path, or nil when none exists.
func (l *Ledger) Get(ctx context.Context, path string) (*Entry, error) {
	var e Entry
	err := l.db.QueryRowContext(ctx,
		`SELECT path, content_hash, records, method, processed_at FROM processed_files WHERE path = ?`, path).
		Scan(&e.Path, &e.ContentHash, &e.Records, &e.Method, &e.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	return &e, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
