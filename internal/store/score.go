package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// SaveScore persists one relevance_score row (spec §4.9).
func (s *Store) SaveScore(ctx context.Context, r model.RelevanceScore) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	computedAt := r.ComputedAt
	if computedAt.IsZero() {
		computedAt = timeNow()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relevance_score
			(geo_id, pmid, total, content_sim, keyword_match, recency,
			 citation_component, weights_version, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(geo_id, pmid) DO UPDATE SET
			total = excluded.total,
			content_sim = excluded.content_sim,
			keyword_match = excluded.keyword_match,
			recency = excluded.recency,
			citation_component = excluded.citation_component,
			weights_version = excluded.weights_version,
			computed_at = excluded.computed_at
	`, r.GEOID, r.PMID, r.Total, r.Components.ContentSim, r.Components.KeywordMatch,
		r.Components.Recency, r.Components.CitationCount, r.WeightsVersion,
		computedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: save score %s/%s: %w", r.GEOID, r.PMID, err)
	}
	return nil
}

// GetScore returns ErrNotFound when no score row exists.
func (s *Store) GetScore(ctx context.Context, geoID, pmid string) (model.RelevanceScore, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT geo_id, pmid, total, content_sim, keyword_match, recency,
		       citation_component, weights_version, computed_at
		FROM relevance_score WHERE geo_id = ? AND pmid = ?
	`, geoID, pmid)

	var r model.RelevanceScore
	var computedAt string
	err := row.Scan(&r.GEOID, &r.PMID, &r.Total, &r.Components.ContentSim,
		&r.Components.KeywordMatch, &r.Components.Recency, &r.Components.CitationCount,
		&r.WeightsVersion, &computedAt)
	if err == sql.ErrNoRows {
		return model.RelevanceScore{}, ErrNotFound
	}
	if err != nil {
		return model.RelevanceScore{}, fmt.Errorf("store: get score: %w", err)
	}
	r.ComputedAt, _ = time.Parse(time.RFC3339, computedAt)
	return r, nil
}
