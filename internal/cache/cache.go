// Package cache is a small persistent key-value store for fetched rasters and
// prediction overlays. Entries expire after a TTL and the least recently used
// entries are evicted once the store holds more than MaxEntries.
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

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is what the gateway and the editor host depend on.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Options tune expiry and eviction. Zero values disable the limit.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	// Now is used in tests.
	Now func() time.Time
}

// Store is a SQLite backed Cache.
type Store struct {
	db   *sql.DB
	opts Options
}

// DefaultPath returns ~/.cache/slicecontour/cache.db honouring XDG_CACHE_HOME.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}
	return filepath.Join(dir, "slicecontour", "cache.db"), nil
}

// Open opens or creates the store at path.
func Open(path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{db: db, opts: opts}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key and marks it as recently used.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value   []byte
		created int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, created_at FROM entries WHERE key = ?`, key).Scan(&value, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	now := s.opts.Now()
	if s.expired(created, now) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
			return nil, fmt.Errorf("cache expire %s: %w", key, err)
		}
		return nil, ErrMiss
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE entries SET used_at = ? WHERE key = ?`, now.UnixNano(), key); err != nil {
		return nil, fmt.Errorf("cache touch %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value, then evicts
// least recently used entries beyond MaxEntries.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	now := s.opts.Now().UnixNano()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (key, value, created_at, used_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at, used_at = excluded.used_at`,
		key, value, now, now)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	if s.opts.MaxEntries > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM entries WHERE key IN (
				SELECT key FROM entries ORDER BY used_at DESC, rowid DESC LIMIT -1 OFFSET ?
			)`, s.opts.MaxEntries)
		if err != nil {
			return fmt.Errorf("cache evict: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Removing an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// Prune drops expired entries and reports how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.opts.TTL <= 0 {
		return 0, nil
	}
	cutoff := s.opts.Now().Add(-s.opts.TTL).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Clear drops every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache len: %w", err)
	}
	return n, nil
}

func (s *Store) expired(created int64, now time.Time) bool {
	if s.opts.TTL <= 0 {
		return false
	}
	return now.Sub(time.Unix(0, created)) >= s.opts.TTL
}

// Nop is a Cache that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }
func (Nop) Set(context.Context, string, []byte) error   { return nil }
func (Nop) Delete(context.Context, string) error        { return nil }
