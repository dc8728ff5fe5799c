// Package sqlstore implements remote.Store on SQLite for sync daemons that
// run without Redis. Expired rows are hidden from reads immediately and
// removed by Sweep.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/pantry/internal/remote"
)

var _ remote.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS sync_records (
    id TEXT PRIMARY KEY,
    key TEXT NOT NULL UNIQUE,
    payload BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_records_expires_at ON sync_records(expires_at);
`

// record mirrors a sync_records row.
type record struct {
	ID        string `db:"id"`
	Key       string `db:"key"`
	Payload   []byte `db:"payload"`
	CreatedAt int64  `db:"created_at"`
	ExpiresAt int64  `db:"expires_at"`
}

// Store keeps sync records in a SQLite table.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open creates the database file if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts a record unless a live one already holds key. An expired
// record under the same key is replaced.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := s.now()
	rec := record{
		ID:        uuid.NewString(),
		Key:       key,
		Payload:   value,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sync_records WHERE key = ? AND expires_at <= ?",
		key, rec.CreatedAt,
	); err != nil {
		return false, fmt.Errorf("failed to clear expired record: %w", err)
	}

	res, err := tx.NamedExecContext(ctx,
		`INSERT INTO sync_records (id, key, payload, created_at, expires_at)
		 VALUES (:id, :key, :payload, :created_at, :expires_at)
		 ON CONFLICT(key) DO NOTHING`,
		rec,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n == 1, nil
}

// Get returns the payload of the live record under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var rec record
	err := s.db.GetContext(ctx, &rec,
		"SELECT id, key, payload, created_at, expires_at FROM sync_records WHERE key = ? AND expires_at > ?",
		key, s.now().UnixMilli(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec.Payload, nil
}

// Delete removes the record under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sync_records WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Sweep deletes expired records and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sync_records WHERE expires_at <= ?",
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep records: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored records, expired or not.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM sync_records"); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}
