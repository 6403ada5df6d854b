package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// UpsertIdentifier inserts or refreshes a universal_identifier row. The
// first-seen timestamp is preserved across updates; only last_updated_at and
// the mutable fields move (spec §4.1: "upsert_identifier").
func (s *Store) UpsertIdentifier(ctx context.Context, u model.UniversalIdentifier) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := u.LastUpdatedAt
	if now.IsZero() {
		now = timeNow()
	}
	firstSeen := u.FirstDiscoveredAt
	if firstSeen.IsZero() {
		firstSeen = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO universal_identifier
			(geo_id, pmid, pmcid, doi, title, first_discovered_at, last_updated_at, paper_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(geo_id, pmid) DO UPDATE SET
			pmcid = excluded.pmcid,
			doi = excluded.doi,
			title = excluded.title,
			last_updated_at = excluded.last_updated_at,
			paper_type = excluded.paper_type
	`, u.GEOID, u.PMID, nullable(u.PMCID), nullable(u.DOI), nullable(u.Title),
		firstSeen.Format(time.RFC3339), now.Format(time.RFC3339), string(u.PaperType))
	if err != nil {
		return fmt.Errorf("store: upsert identifier %s/%s: %w", u.GEOID, u.PMID, err)
	}
	return nil
}

// GetIdentifier returns ErrNotFound when no (geo_id, pmid) row exists.
func (s *Store) GetIdentifier(ctx context.Context, geoID, pmid string) (model.UniversalIdentifier, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT geo_id, pmid, pmcid, doi, title, first_discovered_at, last_updated_at, paper_type
		FROM universal_identifier WHERE geo_id = ? AND pmid = ?
	`, geoID, pmid)

	var u model.UniversalIdentifier
	var pmcid, doi, title sql.NullString
	var firstSeen, lastUpdated string
	var paperType string

	err := row.Scan(&u.GEOID, &u.PMID, &pmcid, &doi, &title, &firstSeen, &lastUpdated, &paperType)
	if err == sql.ErrNoRows {
		return model.UniversalIdentifier{}, ErrNotFound
	}
	if err != nil {
		return model.UniversalIdentifier{}, fmt.Errorf("store: get identifier: %w", err)
	}

	u.PMCID = pmcid.String
	u.DOI = doi.String
	u.Title = title.String
	u.PaperType = model.PaperType(paperType)
	u.FirstDiscoveredAt, _ = time.Parse(time.RFC3339, firstSeen)
	u.LastUpdatedAt, _ = time.Parse(time.RFC3339, lastUpdated)
	return u, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeNow is overridable in tests; production callers always observe real
// wall-clock time.
var timeNow = time.Now
