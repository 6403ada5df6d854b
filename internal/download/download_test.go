package download

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/netutil"
	"github.com/omicsoracle/omicsoracle/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestDownloader(t *testing.T, st *store.Store) *Downloader {
	t.Helper()
	client := netutil.NewClient(netutil.Timeouts{Connect: time.Second, Read: 5 * time.Second, PerURLOverall: 5 * time.Second})
	limiter := netutil.NewHostLimiter(4, 100)
	d := New(client, limiter, st, zap.NewNop().Sugar())
	d.RetryDelay = time.Millisecond // keep tests fast
	return d
}

func withStubbedPDFValidation(t *testing.T, valid bool) {
	t.Helper()
	orig := pdfHeaderParses
	pdfHeaderParses = func(body []byte) bool { return valid }
	t.Cleanup(func() { pdfHeaderParses = orig })
}

func TestRunShortCircuitsOnExistingArtifact(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertIdentifier(ctx, model.UniversalIdentifier{GEOID: "GSE1", PMID: "100", PaperType: model.PaperTypeSeed}))
	existing, _, err := st.SaveArtifact(ctx, "GSE1", "100", "pmc", string(model.ContentTypePDF), []byte("%PDF-1.4 prior content padded out to be long enough"))
	require.NoError(t, err)

	d := newTestDownloader(t, st)
	artifact, ok, err := d.Run(ctx, "GSE1", model.Publication{PMID: "100"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, existing.SHA256, artifact.SHA256)
}

func TestRunNoCandidatesIsNotAnError(t *testing.T) {
	st := newTestStore(t)
	d := newTestDownloader(t, st)
	artifact, ok, err := d.Run(context.Background(), "GSE2", model.Publication{PMID: "200"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, model.PDFArtifact{}, artifact)
}

func TestRunSucceedsOnValidPDF(t *testing.T) {
	withStubbedPDFValidation(t, true)
	st := newTestStore(t)
	ctx := context.Background()

	pdfBody := make([]byte, 0, 2048)
	pdfBody = append(pdfBody, []byte("%PDF-1.4\n")...)
	pdfBody = append(pdfBody, bytes.Repeat([]byte("x"), 2048)...)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody)
	}))
	defer server.Close()

	require.NoError(t, st.UpsertIdentifier(ctx, model.UniversalIdentifier{GEOID: "GSE3", PMID: "300", PaperType: model.PaperTypeSeed}))
	require.NoError(t, st.AddURL(ctx, model.URLDiscovery{
		GEOID: "GSE3", PMID: "300", Source: "pmc", URL: server.URL, URLType: model.URLTypePDFDirect, Priority: 0,
	}))

	d := newTestDownloader(t, st)
	artifact, ok, err := d.Run(ctx, "GSE3", model.Publication{PMID: "300"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pmc", artifact.SourceUsed)
	assert.Equal(t, model.ContentTypePDF, artifact.ContentType)
}

func TestRunFallsBackToHTMLWhenNoPDFFound(t *testing.T) {
	withStubbedPDFValidation(t, false)
	st := newTestStore(t)
	ctx := context.Background()

	htmlBody := "<html><body>" + strings.Repeat("full text content ", 200) + "</body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(htmlBody))
	}))
	defer server.Close()

	require.NoError(t, st.UpsertIdentifier(ctx, model.UniversalIdentifier{GEOID: "GSE4", PMID: "400", PaperType: model.PaperTypeSeed}))
	require.NoError(t, st.AddURL(ctx, model.URLDiscovery{
		GEOID: "GSE4", PMID: "400", Source: "landing", URL: server.URL, URLType: model.URLTypeLandingPage, Priority: 0,
	}))

	d := newTestDownloader(t, st)
	artifact, ok, err := d.Run(ctx, "GSE4", model.Publication{PMID: "400"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.ContentTypeHTML, artifact.ContentType)
}

func TestRunFollowsLandingPageExtractedPDFLink(t *testing.T) {
	withStubbedPDFValidation(t, true)
	st := newTestStore(t)
	ctx := context.Background()

	pdfBody := make([]byte, 0, 2048)
	pdfBody = append(pdfBody, []byte("%PDF-1.4\n")...)
	pdfBody = append(pdfBody, bytes.Repeat([]byte("y"), 2048)...)

	mux := http.NewServeMux()
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><meta name="citation_pdf_url" content="/paper.pdf"></head><body>landing</body></html>`))
	})
	mux.HandleFunc("/paper.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	require.NoError(t, st.UpsertIdentifier(ctx, model.UniversalIdentifier{GEOID: "GSE5", PMID: "500", PaperType: model.PaperTypeSeed}))
	require.NoError(t, st.AddURL(ctx, model.URLDiscovery{
		GEOID: "GSE5", PMID: "500", Source: "publisher", URL: server.URL + "/landing", URLType: model.URLTypeLandingPage, Priority: 0,
	}))

	d := newTestDownloader(t, st)
	artifact, ok, err := d.Run(ctx, "GSE5", model.Publication{PMID: "500"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.ContentTypePDF, artifact.ContentType)
}

func TestRunExhaustsAllSourcesAndFails(t *testing.T) {
	withStubbedPDFValidation(t, false)
	st := newTestStore(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	require.NoError(t, st.UpsertIdentifier(ctx, model.UniversalIdentifier{GEOID: "GSE6", PMID: "600", PaperType: model.PaperTypeSeed}))
	require.NoError(t, st.AddURL(ctx, model.URLDiscovery{
		GEOID: "GSE6", PMID: "600", Source: "core", URL: server.URL, URLType: model.URLTypePDFDirect, Priority: 0,
	}))

	d := newTestDownloader(t, st)
	_, ok, err := d.Run(ctx, "GSE6", model.Publication{PMID: "600"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtractPDFLinkFindsAnchorFallback(t *testing.T) {
	body := []byte(`<html><body><a href="/files/article.pdf">Download PDF</a></body></html>`)
	link, ok := extractPDFLink(body, "https://example.org/landing")
	require.True(t, ok)
	assert.Equal(t, "https://example.org/files/article.pdf", link)
}

func TestLooksLikePDFRequiresHeader(t *testing.T) {
	assert.True(t, looksLikePDF([]byte("%PDF-1.4 rest")))
	assert.False(t, looksLikePDF([]byte("<html>not a pdf</html>")))
}
