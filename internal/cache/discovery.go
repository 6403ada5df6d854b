// Package cache implements the two stores spec §4.7 requires: a two-layer
// discovery cache for P1/P2 client responses, and a content-addressed
// parsed-content cache for P4 section JSON.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"
)

// DiscoveryStats summarizes cache effectiveness for the maintenance CLI.
type DiscoveryStats struct {
	LRUEntries  int
	DiskEntries int
	ExpiredDiskEntries int
}

type discoveryEntry struct {
	value     []byte
	expiresAt time.Time
}

// DiscoveryCache is the in-process LRU in front of a persistent sqlite
// key/value store (spec §4.7: "Two-layer: an in-process LRU in front of a
// persistent on-disk key/value store"). Keys are "source|canonical_id".
type DiscoveryCache struct {
	lru *lru.Cache[string, discoveryEntry]
	db  *sql.DB
	ttl time.Duration
}

// NewDiscoveryCache opens (or creates) cache/discovery.sqlite under root
// and an lruSize-entry in-process layer in front of it.
func NewDiscoveryCache(root string, ttl time.Duration, lruSize int) (*DiscoveryCache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create root: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(root, "discovery.sqlite"))
	if err != nil {
		return nil, fmt.Errorf("cache: open discovery.sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS discovery_cache (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create schema: %w", err)
	}

	if lruSize <= 0 {
		lruSize = 4096
	}
	l, err := lru.New[string, discoveryEntry](lruSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create lru: %w", err)
	}

	return &DiscoveryCache{lru: l, db: db, ttl: ttl}, nil
}

func (c *DiscoveryCache) Close() error { return c.db.Close() }

func cacheKey(source, canonicalID string) string {
	return source + "|" + canonicalID
}

// Get short-circuits at the LRU layer first; a miss there falls through to
// the persistent store, which repopulates the LRU on hit. An expired disk
// entry is treated as a miss without being deleted — cleanup is CleanupExpired's job.
func (c *DiscoveryCache) Get(ctx context.Context, source, canonicalID string) ([]byte, bool, error) {
	key := cacheKey(source, canonicalID)

	if entry, ok := c.lru.Get(key); ok {
		if time.Now().Before(entry.expiresAt) {
			return entry.value, true, nil
		}
		c.lru.Remove(key)
	}

	var value []byte
	var expiresAtStr string
	err := c.db.QueryRowContext(ctx, `SELECT value, expires_at FROM discovery_cache WHERE key = ?`, key).
		Scan(&value, &expiresAtStr)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}

	expiresAt, _ := time.Parse(time.RFC3339, expiresAtStr)
	if !time.Now().Before(expiresAt) {
		return nil, false, nil
	}

	c.lru.Add(key, discoveryEntry{value: value, expiresAt: expiresAt})
	return value, true, nil
}

// Set writes through both layers with expiry now+ttl.
func (c *DiscoveryCache) Set(ctx context.Context, source, canonicalID string, value []byte) error {
	key := cacheKey(source, canonicalID)
	expiresAt := time.Now().Add(c.ttl)

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO discovery_cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}

	c.lru.Add(key, discoveryEntry{value: value, expiresAt: expiresAt})
	return nil
}

// Stats reports LRU occupancy plus total/expired disk entry counts.
func (c *DiscoveryCache) Stats(ctx context.Context) (DiscoveryStats, error) {
	stats := DiscoveryStats{LRUEntries: c.lru.Len()}

	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM discovery_cache`).Scan(&stats.DiskEntries); err != nil {
		return DiscoveryStats{}, fmt.Errorf("cache: stats count: %w", err)
	}
	now := time.Now().Format(time.RFC3339)
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM discovery_cache WHERE expires_at < ?`, now).
		Scan(&stats.ExpiredDiskEntries); err != nil {
		return DiscoveryStats{}, fmt.Errorf("cache: stats expired: %w", err)
	}
	return stats, nil
}

// CleanupExpired deletes every disk entry past its TTL and drops the
// in-process LRU wholesale (cheap, since it will repopulate from live
// traffic — there is no way to selectively prune an LRU by expiry without
// walking it, which golang-lru does not expose).
func (c *DiscoveryCache) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now().Format(time.RFC3339)
	res, err := c.db.ExecContext(ctx, `DELETE FROM discovery_cache WHERE expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("cache: cleanup: %w", err)
	}
	n, _ := res.RowsAffected()
	c.lru.Purge()
	return int(n), nil
}

// Invalidate removes entries by exact key ("source|canonical_id") or, when
// keyOrPrefix ends in "*", by prefix match (e.g. "openalex|*" clears every
// OpenAlex entry).
func (c *DiscoveryCache) Invalidate(ctx context.Context, keyOrPrefix string) (int, error) {
	var res sql.Result
	var err error
	if strings.HasSuffix(keyOrPrefix, "*") {
		prefix := strings.TrimSuffix(keyOrPrefix, "*")
		res, err = c.db.ExecContext(ctx, `DELETE FROM discovery_cache WHERE key LIKE ?`, prefix+"%")
	} else {
		res, err = c.db.ExecContext(ctx, `DELETE FROM discovery_cache WHERE key = ?`, keyOrPrefix)
	}
	if err != nil {
		return 0, fmt.Errorf("cache: invalidate: %w", err)
	}
	n, _ := res.RowsAffected()
	c.lru.Purge()
	return int(n), nil
}
