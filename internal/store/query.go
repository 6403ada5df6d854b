package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// GetCompleteGEOData joins every identifier row for a series against its
// urls, artifact, extraction, and score — the single read spec §4.1 names as
// "get_complete_geo_data", used both by the CLI's `validate` subcommand and
// by any downstream consumer that wants one series in full.
func (s *Store) GetCompleteGEOData(ctx context.Context, geoID string) (model.CompleteGEOData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT geo_id, pmid FROM universal_identifier WHERE geo_id = ? ORDER BY pmid ASC
	`, geoID)
	if err != nil {
		return model.CompleteGEOData{}, fmt.Errorf("store: list identifiers: %w", err)
	}
	var pmids []string
	for rows.Next() {
		var gid, pmid string
		if err := rows.Scan(&gid, &pmid); err != nil {
			rows.Close()
			return model.CompleteGEOData{}, fmt.Errorf("store: scan identifier: %w", err)
		}
		pmids = append(pmids, pmid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.CompleteGEOData{}, err
	}

	data := model.CompleteGEOData{GEOID: geoID}
	for _, pmid := range pmids {
		view, err := s.paperView(ctx, geoID, pmid)
		if err != nil {
			return model.CompleteGEOData{}, err
		}
		data.Papers = append(data.Papers, view)
	}
	return data, nil
}

func (s *Store) paperView(ctx context.Context, geoID, pmid string) (model.PaperView, error) {
	ident, err := s.GetIdentifier(ctx, geoID, pmid)
	if err != nil {
		return model.PaperView{}, fmt.Errorf("store: paper view identifier: %w", err)
	}
	view := model.PaperView{Identifier: ident}

	urls, err := s.URLsForPaper(ctx, geoID, pmid)
	if err != nil {
		return model.PaperView{}, err
	}
	view.URLs = urls

	if artifact, err := s.GetArtifact(ctx, geoID, pmid); err == nil {
		view.Artifact = &artifact
	} else if err != ErrNotFound {
		return model.PaperView{}, err
	}

	if extraction, err := s.GetExtraction(ctx, geoID, pmid); err == nil {
		view.Extraction = &extraction
	} else if err != ErrNotFound {
		return model.PaperView{}, err
	}

	if score, err := s.GetScore(ctx, geoID, pmid); err == nil {
		view.Score = &score
	} else if err != ErrNotFound {
		return model.PaperView{}, err
	}

	return view, nil
}

// QueryByPMID locates every GEO series a given PMID has been attached to —
// the same publication can legitimately support more than one series.
func (s *Store) QueryByPMID(ctx context.Context, pmid string) ([]model.UniversalIdentifier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT geo_id, pmid, pmcid, doi, title, first_discovered_at, last_updated_at, paper_type
		FROM universal_identifier WHERE pmid = ?
	`, pmid)
	if err != nil {
		return nil, fmt.Errorf("store: query by pmid: %w", err)
	}
	defer rows.Close()

	var out []model.UniversalIdentifier
	for rows.Next() {
		u, err := scanIdentifier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanIdentifier(rows *sql.Rows) (model.UniversalIdentifier, error) {
	var u model.UniversalIdentifier
	var pmcid, doi, title sql.NullString
	var firstSeen, lastUpdated, paperType string
	if err := rows.Scan(&u.GEOID, &u.PMID, &pmcid, &doi, &title, &firstSeen, &lastUpdated, &paperType); err != nil {
		return model.UniversalIdentifier{}, fmt.Errorf("store: scan identifier: %w", err)
	}
	u.PMCID = pmcid.String
	u.DOI = doi.String
	u.Title = title.String
	u.PaperType = model.PaperType(paperType)
	return u, nil
}

// MissingStage identifies which pipeline stage a (geo_id, pmid) pair has not
// yet completed, for --resume: P2 is missing with no urls, P3 is missing
// with urls but no artifact, P4 is missing with an artifact but no
// extraction, and "" means every stage has run.
func (s *Store) MissingStage(ctx context.Context, geoID, pmid string) (model.Stage, error) {
	urls, err := s.URLsForPaper(ctx, geoID, pmid)
	if err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return model.StageP2, nil
	}

	if _, err := s.GetArtifact(ctx, geoID, pmid); err == ErrNotFound {
		return model.StageP3, nil
	} else if err != nil {
		return "", err
	}

	if _, err := s.GetExtraction(ctx, geoID, pmid); err == ErrNotFound {
		return model.StageP4, nil
	} else if err != nil {
		return "", err
	}

	return "", nil
}

// QueryMissingStage scans every identifier in a series and returns the
// (pmid, stage) pairs that --resume must still run.
func (s *Store) QueryMissingStage(ctx context.Context, geoID string) (map[string]model.Stage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pmid FROM universal_identifier WHERE geo_id = ?
	`, geoID)
	if err != nil {
		return nil, fmt.Errorf("store: query missing stage: %w", err)
	}
	var pmids []string
	for rows.Next() {
		var pmid string
		if err := rows.Scan(&pmid); err != nil {
			rows.Close()
			return nil, err
		}
		pmids = append(pmids, pmid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]model.Stage)
	for _, pmid := range pmids {
		stage, err := s.MissingStage(ctx, geoID, pmid)
		if err != nil {
			return nil, err
		}
		if stage != "" {
			out[pmid] = stage
		}
	}
	return out, nil
}
