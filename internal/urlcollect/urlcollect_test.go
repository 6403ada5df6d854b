package urlcollect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/sources"
	"github.com/omicsoracle/omicsoracle/internal/store"
)

type fakeURLClient struct {
	name string
	urls []sources.URLCandidate
	err  error
}

func (f *fakeURLClient) Name() string { return f.name }

func (f *fakeURLClient) Candidates(ctx context.Context, pub model.Publication) ([]sources.URLCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.urls, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRunSortsByPriorityThenURLTypeRank(t *testing.T) {
	st := newTestStore(t)
	pmc := &fakeURLClient{name: "pmc", urls: []sources.URLCandidate{
		{URL: "https://example.org/landing", URLType: model.URLTypeLandingPage, Priority: 0},
		{URL: "https://example.org/direct.pdf", URLType: model.URLTypePDFDirect, Priority: 0},
	}}
	unpaywall := &fakeURLClient{name: "unpaywall", urls: []sources.URLCandidate{
		{URL: "https://example.org/oa.pdf", URLType: model.URLTypePDFDirect, Priority: 1},
	}}

	c := New([]sources.URLClient{pmc, unpaywall}, st, zap.NewNop().Sugar())
	results, err := c.Run(context.Background(), "GSE1", model.Publication{PMID: "100"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "https://example.org/direct.pdf", results[0].URL)
	assert.Equal(t, "https://example.org/landing", results[1].URL)
	assert.Equal(t, "https://example.org/oa.pdf", results[2].URL)
}

func TestRunToleratesFailingSource(t *testing.T) {
	st := newTestStore(t)
	failing := &fakeURLClient{name: "core", err: errors.New("503")}
	working := &fakeURLClient{name: "crossref", urls: []sources.URLCandidate{
		{URL: "https://example.org/a.pdf", URLType: model.URLTypePDFDirect, Priority: 0},
	}}

	c := New([]sources.URLClient{failing, working}, st, zap.NewNop().Sugar())
	results, err := c.Run(context.Background(), "GSE2", model.Publication{PMID: "200"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "crossref", results[0].Source)
}

func TestRunZeroURLsIsNotAnError(t *testing.T) {
	st := newTestStore(t)
	empty := &fakeURLClient{name: "unpaywall"}

	c := New([]sources.URLClient{empty}, st, zap.NewNop().Sugar())
	results, err := c.Run(context.Background(), "GSE3", model.Publication{PMID: "300"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunPersistsURLsIdempotently(t *testing.T) {
	st := newTestStore(t)
	client := &fakeURLClient{name: "pmc", urls: []sources.URLCandidate{
		{URL: "https://example.org/a.pdf", URLType: model.URLTypePDFDirect, Priority: 0},
	}}

	c := New([]sources.URLClient{client}, st, zap.NewNop().Sugar())
	ctx := context.Background()
	pub := model.Publication{PMID: "400"}
	require.NoError(t, st.UpsertIdentifier(ctx, model.UniversalIdentifier{GEOID: "GSE4", PMID: "400", PaperType: model.PaperTypeSeed}))

	_, err := c.Run(ctx, "GSE4", pub)
	require.NoError(t, err)
	_, err = c.Run(ctx, "GSE4", pub)
	require.NoError(t, err)

	stored, err := st.URLsForPaper(ctx, "GSE4", "400")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
