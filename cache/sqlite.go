package cache

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

const (
	labelTag  = "tag"
	labelPath = "path"
)

// SQLiteStore is a Store persisted in a SQLite database, so warmed
// snapshots survive restarts.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path, ensures the data
// directory exists, and creates the cache tables. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteStore, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if memory {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec(`
			PRAGMA journal_mode=WAL;
			PRAGMA busy_timeout=5000;
			PRAGMA synchronous=NORMAL;
			PRAGMA cache_size=-8000;
		`); err != nil {
			db.Close()
			return nil, err
		}
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS cache_entries (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cache_labels (
    key TEXT NOT NULL,
    kind TEXT NOT NULL,
    label TEXT NOT NULL,
    PRIMARY KEY (key, kind, label)
);
CREATE INDEX IF NOT EXISTS idx_cache_labels_label ON cache_labels(kind, label);
`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM cache_entries WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	if s.now().UnixMilli() >= expiresAt {
		if _, err := s.remove(ctx, `SELECT ?`, key); err != nil {
			return nil, err
		}
		return nil, ErrMiss
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, e Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_labels WHERE key IN (SELECT key FROM cache_entries WHERE expires_at <= ?)`, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, e.Value, e.ExpiresAt.UnixMilli()); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_labels WHERE key = ?`, key); err != nil {
		return err
	}
	for _, t := range normalizeAll(e.Tags, NormalizeTag) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cache_labels (key, kind, label) VALUES (?, ?, ?)`, key, labelTag, t); err != nil {
			return err
		}
	}
	for _, p := range normalizeAll(e.Paths, NormalizePath) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cache_labels (key, kind, label) VALUES (?, ?, ?)`, key, labelPath, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) InvalidateTag(ctx context.Context, tag string) (int, error) {
	return s.remove(ctx, `SELECT key FROM cache_labels WHERE kind = ? AND label = ?`, labelTag, NormalizeTag(tag))
}

func (s *SQLiteStore) InvalidatePath(ctx context.Context, path string) (int, error) {
	path = NormalizePath(path)
	if path == "/" {
		return s.Purge(ctx)
	}
	return s.remove(ctx, `SELECT key FROM cache_labels WHERE kind = ? AND label = ?`, labelPath, path)
}

func (s *SQLiteStore) Purge(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_labels`); err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}

// remove deletes the entries whose keys are selected by keysQuery.
func (s *SQLiteStore) remove(ctx context.Context, keysQuery string, args ...any) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE key IN (`+keysQuery+`)`, args...)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_labels WHERE key IN (`+keysQuery+`)`, args...); err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}
