package store

import (
	"context"
	"fmt"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// Log appends one processing_log row. Unlike every other entity in this
// package, this table is append-only — there is no upsert, no uniqueness
// constraint, and no conflict to resolve; it is the audit trail spec §3
// describes, not a materialized current-state table.
func (s *Store) Log(ctx context.Context, l model.ProcessingLog) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ts := l.Timestamp
	if ts.IsZero() {
		ts = timeNow()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_log
			(geo_id, pmid, stage, source, level, message, attempt, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.GEOID, nullable(l.PMID), string(l.Stage), nullable(l.Source), string(l.Level),
		l.Message, l.Attempt, ts.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: log: %w", err)
	}
	return nil
}

// LogsForGEO returns every processing_log row for a series, oldest first.
func (s *Store) LogsForGEO(ctx context.Context, geoID string) ([]model.ProcessingLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, geo_id, pmid, stage, source, level, message, attempt, timestamp
		FROM processing_log WHERE geo_id = ? ORDER BY id ASC
	`, geoID)
	if err != nil {
		return nil, fmt.Errorf("store: logs for geo: %w", err)
	}
	defer rows.Close()

	var out []model.ProcessingLog
	for rows.Next() {
		var l model.ProcessingLog
		var pmid, source, stage, level, ts string
		if err := rows.Scan(&l.ID, &l.GEOID, &pmid, &stage, &source, &level, &l.Message, &l.Attempt, &ts); err != nil {
			return nil, fmt.Errorf("store: scan log: %w", err)
		}
		l.PMID = pmid
		l.Source = source
		l.Stage = model.Stage(stage)
		l.Level = model.LogLevel(level)
		l.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, l)
	}
	return out, rows.Err()
}
