// Package store implements the unified GEO-centric persistence layer
// (spec §4.1, §3, §6): one sqlite database plus a per-GEO filesystem tree,
// with a single writer per entity and content-addressed artifact dedup.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store owns the database connection and the STORE_ROOT filesystem tree.
// All callers receive it as a constructed collaborator (Design Notes: "from
// globals to injected collaborators") — there is no package-level singleton.
type Store struct {
	db   *sql.DB
	root string
	log  *zap.SugaredLogger

	// writeMu serializes writes across goroutines to avoid SQLITE_BUSY
	// under the bounded worker pools described in spec §5; reads are
	// unrestricted per spec §4.1 "Ownership".
	writeMu sync.Mutex
}

// Open creates STORE_ROOT if missing, opens (or creates) db.sqlite, and
// applies the schema. root is spec's STORE_ROOT config value.
func Open(root string, log *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}

	dbPath := filepath.Join(root, "db.sqlite")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	// SQLite only supports one writer at a time; a single connection plus
	// writeMu keeps that invariant explicit instead of relying on driver
	// retry behavior under SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db, root: root, log: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetConnection exposes a read-only handle for analytics (spec §4.1).
func (s *Store) GetConnection() *sql.DB {
	return s.db
}

// Root returns the configured STORE_ROOT, for callers that need to resolve
// paths (e.g. the CLI's `cache` subcommands).
func (s *Store) Root() string {
	return s.root
}

// geoDir returns store_root/{geo_id}.
func (s *Store) geoDir(geoID string) string {
	return filepath.Join(s.root, geoID)
}

// pdfDir returns store_root/{geo_id}/pdfs.
func (s *Store) pdfDir(geoID string) string {
	return filepath.Join(s.geoDir(geoID), "pdfs")
}

// artifactFilename builds the spec's "PMID_{pmid}.{pdf|html}" name.
func artifactFilename(pmid string, ext string) string {
	return fmt.Sprintf("PMID_%s.%s", pmid, ext)
}
