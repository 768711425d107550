// Package cache persists raw Tumblr API responses so repeated renders of a
// post do not hit the API again until the entry expires.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed body cache.
type Store struct {
	db     *sql.DB
	expiry time.Duration
	now    func() time.Time
}

// New opens (or creates) the cache database at dbPath. Entries older than
// expiry are treated as missing.
func New(dbPath string, expiry time.Duration) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases shared and avoids
	// SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, expiry: expiry, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		key TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		cached_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_cached_at ON posts(cached_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the body stored under key if it has not expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	var cachedAt int64
	err := s.db.QueryRowContext(ctx, `SELECT body, cached_at FROM posts WHERE key = ?`, key).Scan(&body, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.expired(cachedAt) {
		return nil, false, nil
	}
	return body, true, nil
}

// Put inserts or replaces the body stored under key.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (key, body, cached_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			cached_at = excluded.cached_at
	`, key, body, s.now().Unix())
	return err
}

// Prune deletes expired entries and reports how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.expiry <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.expiry).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE cached_at <= ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) expired(cachedAt int64) bool {
	if s.expiry <= 0 {
		return false
	}
	return s.now().Sub(time.Unix(cachedAt, 0)) >= s.expiry
}
