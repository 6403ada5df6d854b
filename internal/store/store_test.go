package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedIdentifier(t *testing.T, s *Store, geoID, pmid string) {
	t.Helper()
	err := s.UpsertIdentifier(context.Background(), model.UniversalIdentifier{
		GEOID: geoID, PMID: pmid, Title: "a title", PaperType: model.PaperTypeSeed,
	})
	require.NoError(t, err)
}

func TestUpsertIdentifierPreservesFirstSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := s.UpsertIdentifier(ctx, model.UniversalIdentifier{
		GEOID: "GSE1", PMID: "100", Title: "orig", PaperType: model.PaperTypeSeed,
		FirstDiscoveredAt: first, LastUpdatedAt: first,
	})
	require.NoError(t, err)

	later := first.Add(24 * time.Hour)
	err = s.UpsertIdentifier(ctx, model.UniversalIdentifier{
		GEOID: "GSE1", PMID: "100", Title: "revised", PaperType: model.PaperTypeCiting,
		FirstDiscoveredAt: later, LastUpdatedAt: later,
	})
	require.NoError(t, err)

	got, err := s.GetIdentifier(ctx, "GSE1", "100")
	require.NoError(t, err)
	require.Equal(t, "revised", got.Title)
	require.Equal(t, model.PaperTypeCiting, got.PaperType)
	require.True(t, got.FirstDiscoveredAt.Equal(first))
}

func TestGetIdentifierNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetIdentifier(context.Background(), "GSE1", "100")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddURLIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedIdentifier(t, s, "GSE1", "100")

	d := model.URLDiscovery{
		GEOID: "GSE1", PMID: "100", Source: "pmc", URL: "https://pmc/x.pdf",
		URLType: model.URLTypePDFDirect, Priority: 1,
	}
	require.NoError(t, s.AddURL(ctx, d))
	require.NoError(t, s.AddURL(ctx, d))

	urls, err := s.URLsForPaper(ctx, "GSE1", "100")
	require.NoError(t, err)
	require.Len(t, urls, 1)
}

func TestURLsForPaperSortOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedIdentifier(t, s, "GSE1", "100")

	urls := []model.URLDiscovery{
		{GEOID: "GSE1", PMID: "100", Source: "a", URL: "u1", URLType: model.URLTypeLandingPage, Priority: 1},
		{GEOID: "GSE1", PMID: "100", Source: "b", URL: "u2", URLType: model.URLTypePDFDirect, Priority: 1},
		{GEOID: "GSE1", PMID: "100", Source: "c", URL: "u3", URLType: model.URLTypePDFDirect, Priority: 0},
	}
	for _, u := range urls {
		require.NoError(t, s.AddURL(ctx, u))
	}

	got, err := s.URLsForPaper(ctx, "GSE1", "100")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "u3", got[0].URL)
	require.Equal(t, "u2", got[1].URL)
	require.Equal(t, "u1", got[2].URL)
}

func TestSaveArtifactDedupsBySHA256(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedIdentifier(t, s, "GSE1", "100")
	seedIdentifier(t, s, "GSE1", "200")

	data := []byte("%PDF-1.4 fake content")
	a1, deduped1, err := s.SaveArtifact(ctx, "GSE1", "100", "pmc", string(model.ContentTypePDF), data)
	require.NoError(t, err)
	require.False(t, deduped1)

	a2, deduped2, err := s.SaveArtifact(ctx, "GSE1", "200", "unpaywall", string(model.ContentTypePDF), data)
	require.NoError(t, err)
	require.True(t, deduped2)

	require.Equal(t, a1.PDFPath, a2.PDFPath)
	require.Equal(t, a1.SHA256, a2.SHA256)

	entries, err := filepath.Glob(filepath.Join(s.root, "GSE1", "pdfs", "*"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveExtractionComputesWordCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedIdentifier(t, s, "GSE1", "100")

	err := s.SaveExtraction(ctx, model.ContentExtraction{
		GEOID: "GSE1", PMID: "100", FullText: "one two three four",
		ExtractionMethod: "pdf", ExtractionQuality: 0.9, ExtractionGrade: model.GradeA,
	})
	require.NoError(t, err)

	got, err := s.GetExtraction(ctx, "GSE1", "100")
	require.NoError(t, err)
	require.Equal(t, 4, got.WordCount)
}

func TestMissingStageProgression(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedIdentifier(t, s, "GSE1", "100")

	stage, err := s.MissingStage(ctx, "GSE1", "100")
	require.NoError(t, err)
	require.Equal(t, model.StageP2, stage)

	require.NoError(t, s.AddURL(ctx, model.URLDiscovery{
		GEOID: "GSE1", PMID: "100", Source: "pmc", URL: "u1", URLType: model.URLTypePDFDirect,
	}))
	stage, err = s.MissingStage(ctx, "GSE1", "100")
	require.NoError(t, err)
	require.Equal(t, model.StageP3, stage)

	_, _, err = s.SaveArtifact(ctx, "GSE1", "100", "pmc", string(model.ContentTypePDF), []byte("%PDF-1.4"))
	require.NoError(t, err)
	stage, err = s.MissingStage(ctx, "GSE1", "100")
	require.NoError(t, err)
	require.Equal(t, model.StageP4, stage)

	require.NoError(t, s.SaveExtraction(ctx, model.ContentExtraction{
		GEOID: "GSE1", PMID: "100", FullText: "done", ExtractionMethod: "pdf",
		ExtractionGrade: model.GradeA,
	}))
	stage, err = s.MissingStage(ctx, "GSE1", "100")
	require.NoError(t, err)
	require.Equal(t, model.Stage(""), stage)
}

func TestGetCompleteGEOData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedIdentifier(t, s, "GSE1", "100")
	seedIdentifier(t, s, "GSE1", "200")

	data, err := s.GetCompleteGEOData(ctx, "GSE1")
	require.NoError(t, err)
	require.Equal(t, "GSE1", data.GEOID)
	require.Len(t, data.Papers, 2)
}

func TestLogAppendOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedIdentifier(t, s, "GSE1", "100")

	require.NoError(t, s.Log(ctx, model.ProcessingLog{
		GEOID: "GSE1", PMID: "100", Stage: model.StageP1, Level: model.LogInfo, Message: "first",
	}))
	require.NoError(t, s.Log(ctx, model.ProcessingLog{
		GEOID: "GSE1", PMID: "100", Stage: model.StageP1, Level: model.LogInfo, Message: "second",
	}))

	logs, err := s.LogsForGEO(ctx, "GSE1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "first", logs[0].Message)
	require.Equal(t, "second", logs[1].Message)
}
