// Package cachestore persists HTTP cache entries across runs in sqlite.
//
// Keys combine the URL with a fingerprint of the credentials and user agent
// used for the fetch, so a body cached under one identity is never served
// under another.
package cachestore

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS http_cache (
	key           TEXT PRIMARY KEY,
	url           TEXT NOT NULL,
	etag          TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL DEFAULT '',
	fetched_at    INTEGER NOT NULL,
	body          TEXT NOT NULL DEFAULT ''
);
`

// maxBodyBytes bounds how much of a response body is persisted.
const maxBodyBytes = 500_000

// Entry is one cached conditional-GET result.
type Entry struct {
	URL          string
	ETag         string
	LastModified string
	FetchedAt    time.Time
	Body         string
}

// Key derives the cache key for a URL fetched under the given
// Authorization header and user agent.
func Key(url, authorization, userAgent string) string {
	sum := sha1.Sum([]byte(authorization + "|" + userAgent))
	return url + "||" + hex.EncodeToString(sum[:])
}

// Store is a mutex-guarded sqlite-backed cache map. Reads and writes are
// serialized so concurrent adapters fetching the same URL cannot corrupt a
// read-modify-write cycle.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates (if needed) and opens the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cachestore: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cachestore: open: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cachestore: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the entry for key, reporting whether one exists.
func (s *Store) Get(ctx context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT url, etag, last_modified, fetched_at, body FROM http_cache WHERE key = ?`, key)
	var e Entry
	var fetchedAt int64
	err := row.Scan(&e.URL, &e.ETag, &e.LastModified, &fetchedAt, &e.Body)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cachestore: get: %w", err)
	}
	e.FetchedAt = time.Unix(fetchedAt, 0)
	return e, true, nil
}

// Put inserts or refreshes the entry for key. Bodies are truncated to a
// bounded size before storage.
func (s *Store) Put(ctx context.Context, key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body := e.Body
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}
	fetchedAt := e.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO http_cache (key, url, etag, last_modified, fetched_at, body)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   url = excluded.url,
		   etag = excluded.etag,
		   last_modified = excluded.last_modified,
		   fetched_at = excluded.fetched_at,
		   body = excluded.body`,
		key, e.URL, e.ETag, e.LastModified, fetchedAt.Unix(), body)
	if err != nil {
		return fmt.Errorf("cachestore: put: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
