package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// SaveExtraction persists the P4 output. WordCount is recomputed from
// FullText here rather than trusted from the caller, so every row is
// consistent regardless of which extractor produced it.
func (s *Store) SaveExtraction(ctx context.Context, e model.ContentExtraction) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	e.WordCount = wordCount(e.FullText)
	extractedAt := e.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = timeNow()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_extraction
			(geo_id, pmid, full_text, abstract, methods, results, discussion,
			 sections_json, tables_json, references_json, word_count,
			 extraction_method, extraction_quality, extraction_grade, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(geo_id, pmid) DO UPDATE SET
			full_text = excluded.full_text,
			abstract = excluded.abstract,
			methods = excluded.methods,
			results = excluded.results,
			discussion = excluded.discussion,
			sections_json = excluded.sections_json,
			tables_json = excluded.tables_json,
			references_json = excluded.references_json,
			word_count = excluded.word_count,
			extraction_method = excluded.extraction_method,
			extraction_quality = excluded.extraction_quality,
			extraction_grade = excluded.extraction_grade,
			extracted_at = excluded.extracted_at
	`, e.GEOID, e.PMID, e.FullText, e.Abstract, e.Methods, e.Results, e.Discussion,
		e.SectionsJSON, e.TablesJSON, e.ReferencesJSON, e.WordCount,
		e.ExtractionMethod, e.ExtractionQuality, string(e.ExtractionGrade),
		extractedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: save extraction %s/%s: %w", e.GEOID, e.PMID, err)
	}
	return nil
}

// GetExtraction returns ErrNotFound when no extraction row exists.
func (s *Store) GetExtraction(ctx context.Context, geoID, pmid string) (model.ContentExtraction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT geo_id, pmid, full_text, abstract, methods, results, discussion,
		       sections_json, tables_json, references_json, word_count,
		       extraction_method, extraction_quality, extraction_grade, extracted_at
		FROM content_extraction WHERE geo_id = ? AND pmid = ?
	`, geoID, pmid)

	var e model.ContentExtraction
	var grade, extractedAt string
	err := row.Scan(&e.GEOID, &e.PMID, &e.FullText, &e.Abstract, &e.Methods, &e.Results, &e.Discussion,
		&e.SectionsJSON, &e.TablesJSON, &e.ReferencesJSON, &e.WordCount,
		&e.ExtractionMethod, &e.ExtractionQuality, &grade, &extractedAt)
	if err == sql.ErrNoRows {
		return model.ContentExtraction{}, ErrNotFound
	}
	if err != nil {
		return model.ContentExtraction{}, fmt.Errorf("store: get extraction: %w", err)
	}
	e.ExtractionGrade = model.Grade(grade)
	e.ExtractedAt, _ = time.Parse(time.RFC3339, extractedAt)
	return e, nil
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
