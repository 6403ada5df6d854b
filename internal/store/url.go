package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// AddURL records one discovered URL. The unique index on
// (geo_id, pmid, source, url) makes repeated P2 runs idempotent: rediscovery
// of the same url from the same source is a silent no-op rather than a
// duplicate row.
func (s *Store) AddURL(ctx context.Context, d model.URLDiscovery) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	discoveredAt := d.DiscoveredAt
	if discoveredAt.IsZero() {
		discoveredAt = timeNow()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO url_discovery
			(geo_id, pmid, source, url, url_type, priority, evidence, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(geo_id, pmid, source, url) DO NOTHING
	`, d.GEOID, d.PMID, d.Source, d.URL, string(d.URLType), d.Priority,
		nullable(d.Evidence), discoveredAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: add url %s: %w", d.URL, err)
	}
	return nil
}

// URLsForPaper returns every discovered URL for (geo_id, pmid), sorted by
// (priority ASC, url_type rank ASC) — the exact order spec §4.5 requires the
// download waterfall to walk.
func (s *Store) URLsForPaper(ctx context.Context, geoID, pmid string) ([]model.URLDiscovery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT geo_id, pmid, source, url, url_type, priority, evidence, discovered_at
		FROM url_discovery WHERE geo_id = ? AND pmid = ?
	`, geoID, pmid)
	if err != nil {
		return nil, fmt.Errorf("store: urls for paper: %w", err)
	}
	defer rows.Close()

	var out []model.URLDiscovery
	for rows.Next() {
		var d model.URLDiscovery
		var evidence, discoveredAt string
		var urlType string
		if err := rows.Scan(&d.GEOID, &d.PMID, &d.Source, &d.URL, &urlType, &d.Priority, &evidence, &discoveredAt); err != nil {
			return nil, fmt.Errorf("store: scan url: %w", err)
		}
		d.URLType = model.URLType(urlType)
		d.Evidence = evidence
		d.DiscoveredAt, _ = time.Parse(time.RFC3339, discoveredAt)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortURLsForWaterfall(out)
	return out, nil
}

// sortURLsForWaterfall orders by (priority asc, url_type rank asc), a stable
// sort so same-priority/same-type URLs retain discovery order.
func sortURLsForWaterfall(urls []model.URLDiscovery) {
	sort.SliceStable(urls, func(i, j int) bool {
		a, b := urls[i], urls[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.URLType.Rank() < b.URLType.Rank()
	})
}
