package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// SaveArtifact writes bytes content-addressed under
// store_root/{geo_id}/pdfs/PMID_{pmid}.{ext} and records the row. If a prior
// artifact anywhere in the store already carries the same sha256, the new
// row references that existing path instead of writing a second copy — spec
// §4.1's "no second copy is written" dedup rule. The returned bool reports
// whether this call deduped onto an existing file rather than writing a new
// one, per the dedup contract §4.1 names.
//
// File bytes are written before the database row so a crash between the two
// never leaves a row pointing at a missing file; at worst it leaves an
// orphan file. Nothing in the store or the cache commands removes such
// orphan files.
func (s *Store) SaveArtifact(ctx context.Context, geoID, pmid, sourceUsed, contentType string, data []byte) (model.PDFArtifact, bool, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	ext := "pdf"
	if contentType == string(model.ContentTypeHTML) {
		ext = "html"
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existingPath, err := s.pathForHash(ctx, hash)
	if err != nil {
		return model.PDFArtifact{}, false, err
	}

	deduped := existingPath != ""
	path := existingPath
	if !deduped {
		if err := os.MkdirAll(s.pdfDir(geoID), 0o755); err != nil {
			return model.PDFArtifact{}, false, fmt.Errorf("store: mkdir pdf dir: %w", err)
		}
		path = filepath.Join(s.pdfDir(geoID), artifactFilename(pmid, ext))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return model.PDFArtifact{}, false, fmt.Errorf("store: write artifact: %w", err)
		}
	}

	a := model.PDFArtifact{
		GEOID:        geoID,
		PMID:         pmid,
		PDFPath:      path,
		SHA256:       hash,
		SizeBytes:    int64(len(data)),
		SourceUsed:   sourceUsed,
		DownloadedAt: timeNow(),
		ContentType:  model.ContentType(contentType),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pdf_artifact
			(geo_id, pmid, pdf_path, pdf_hash_sha256, pdf_size_bytes, source_used, downloaded_at, content_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(geo_id, pmid) DO UPDATE SET
			pdf_path = excluded.pdf_path,
			pdf_hash_sha256 = excluded.pdf_hash_sha256,
			pdf_size_bytes = excluded.pdf_size_bytes,
			source_used = excluded.source_used,
			downloaded_at = excluded.downloaded_at,
			content_type = excluded.content_type
	`, a.GEOID, a.PMID, a.PDFPath, a.SHA256, a.SizeBytes, a.SourceUsed,
		a.DownloadedAt.Format(time.RFC3339), string(a.ContentType))
	if err != nil {
		return model.PDFArtifact{}, false, fmt.Errorf("store: save artifact row: %w", err)
	}

	return a, deduped, nil
}

// pathForHash returns the path of any existing artifact with the given
// sha256, or "" if none exists yet.
func (s *Store) pathForHash(ctx context.Context, hash string) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx, `
		SELECT pdf_path FROM pdf_artifact WHERE pdf_hash_sha256 = ? LIMIT 1
	`, hash).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: lookup hash: %w", err)
	}
	return path, nil
}

// GetArtifact returns ErrNotFound when (geo_id, pmid) has no artifact yet.
func (s *Store) GetArtifact(ctx context.Context, geoID, pmid string) (model.PDFArtifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT geo_id, pmid, pdf_path, pdf_hash_sha256, pdf_size_bytes, source_used, downloaded_at, content_type
		FROM pdf_artifact WHERE geo_id = ? AND pmid = ?
	`, geoID, pmid)

	var a model.PDFArtifact
	var downloadedAt, contentType string
	err := row.Scan(&a.GEOID, &a.PMID, &a.PDFPath, &a.SHA256, &a.SizeBytes, &a.SourceUsed, &downloadedAt, &contentType)
	if err == sql.ErrNoRows {
		return model.PDFArtifact{}, ErrNotFound
	}
	if err != nil {
		return model.PDFArtifact{}, fmt.Errorf("store: get artifact: %w", err)
	}
	a.ContentType = model.ContentType(contentType)
	a.DownloadedAt, _ = time.Parse(time.RFC3339, downloadedAt)
	return a, nil
}
