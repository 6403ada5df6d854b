// Package download implements P3, the Artifact Download waterfall
// (spec §4.5): walk candidate URLs in priority order, validate each
// response as PDF or real HTML, and persist at most one artifact.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/netutil"
	"github.com/omicsoracle/omicsoracle/internal/retry"
	"github.com/omicsoracle/omicsoracle/internal/store"

	"go.uber.org/zap"
)

const (
	defaultMinPDFBytes      = 1024
	defaultMinHTMLBytes     = 2048
	defaultPerURLMaxRetries = 2
	defaultRetryDelay       = 1500 * time.Millisecond
)

// Downloader owns the shared HTTP client, host limiter, and store used by
// every waterfall run (spec §5: one client/limiter pair, shared by host).
type Downloader struct {
	Client           *http.Client
	Limiter          *netutil.HostLimiter
	Store            *store.Store
	Log              *zap.SugaredLogger
	MinPDFBytes      int64
	MinHTMLBytes     int
	PerURLMaxRetries int
	RetryDelay       time.Duration
}

func New(client *http.Client, limiter *netutil.HostLimiter, st *store.Store, log *zap.SugaredLogger) *Downloader {
	return &Downloader{
		Client:           client,
		Limiter:          limiter,
		Store:            st,
		Log:              log,
		MinPDFBytes:      defaultMinPDFBytes,
		MinHTMLBytes:     defaultMinHTMLBytes,
		PerURLMaxRetries: defaultPerURLMaxRetries,
		RetryDelay:       defaultRetryDelay,
	}
}

type bodyKind int

const (
	bodyUnknown bodyKind = iota
	bodyPDF
	bodyHTML
)

type fetchResult struct {
	kind        bodyKind
	data        []byte
	landingLink string // populated when an HTML landing page yields a PDF link
}

// Run executes the waterfall for one paper: short-circuit on an existing
// artifact, else walk store.URLsForPaper's priority-sorted candidates,
// returning at most one artifact (spec §4.5).
func (d *Downloader) Run(ctx context.Context, geoID string, pub model.Publication) (model.PDFArtifact, bool, error) {
	existing, err := d.Store.GetArtifact(ctx, geoID, pub.PMID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.PDFArtifact{}, false, err
	}

	candidates, err := d.Store.URLsForPaper(ctx, geoID, pub.PMID)
	if err != nil {
		return model.PDFArtifact{}, false, err
	}
	if len(candidates) == 0 {
		d.logInfo(geoID, pub.PMID, "no candidate URLs, P3 not invoked")
		return model.PDFArtifact{}, false, nil
	}

	var htmlFallback *fetchResult
	var htmlFallbackSource string

	for i := 0; i < len(candidates); i++ {
		candidate := candidates[i]

		result, err := d.tryURL(ctx, candidate)
		if err != nil {
			d.logWarn(geoID, pub.PMID, fmt.Sprintf("%s miss: %v", candidate.URL, err))
			continue
		}

		switch result.kind {
		case bodyPDF:
			artifact, _, err := d.Store.SaveArtifact(ctx, geoID, pub.PMID, candidate.Source, string(model.ContentTypePDF), result.data)
			return artifact, err == nil, err
		case bodyHTML:
			if result.landingLink != "" {
				// Insert the extracted PDF link as a new high-priority
				// candidate right after the one that surfaced it, so it
				// is tried before the rest of the waterfall (§4.5 step).
				linked := model.URLDiscovery{
					GEOID: geoID, PMID: pub.PMID, Source: candidate.Source,
					URL: result.landingLink, URLType: model.URLTypePDFDirect,
					Priority: candidate.Priority, Evidence: "extracted from landing page",
				}
				candidates = insertAfter(candidates, i, linked)
				continue
			}
			if htmlFallback == nil {
				htmlFallback = &result
				htmlFallbackSource = candidate.Source
			}
		}
	}

	if htmlFallback != nil {
		artifact, _, err := d.Store.SaveArtifact(ctx, geoID, pub.PMID, htmlFallbackSource, string(model.ContentTypeHTML), htmlFallback.data)
		return artifact, err == nil, err
	}

	d.logError(geoID, pub.PMID, "all sources exhausted")
	return model.PDFArtifact{}, false, nil
}

func insertAfter(candidates []model.URLDiscovery, i int, item model.URLDiscovery) []model.URLDiscovery {
	out := make([]model.URLDiscovery, 0, len(candidates)+1)
	out = append(out, candidates[:i+1]...)
	out = append(out, item)
	out = append(out, candidates[i+1:]...)
	return out
}

// tryURL fetches one candidate under the retry policy, classifying the
// response and stopping retries immediately on a non-retryable outcome
// (HTTP 4xx, or a 200 that fails validation) so the waterfall moves on to
// the next URL rather than burning attempts on a hopeless candidate.
func (d *Downloader) tryURL(ctx context.Context, candidate model.URLDiscovery) (fetchResult, error) {
	policy := retry.Policy{
		MaxRetries: d.PerURLMaxRetries - 1,
		BaseDelay:  d.RetryDelay,
		Multiplier: 1.3,
		Jitter:     0.25,
		MaxDelay:   d.RetryDelay * 3,
	}

	var result fetchResult
	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		release, aerr := d.Limiter.Acquire(ctx, candidate.URL)
		if aerr != nil {
			return &retry.Error{Kind: retry.KindNetwork, Err: aerr}
		}
		defer release()

		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, candidate.URL, nil)
		if rerr != nil {
			return &retry.Error{Kind: retry.KindInvalid, Err: rerr}
		}
		resp, derr := d.Client.Do(req)
		if derr != nil {
			return retry.Classify(0, derr, 0)
		}
		defer resp.Body.Close()

		body, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return &retry.Error{Kind: retry.KindNetwork, Err: rerr}
		}

		if classified := retry.Classify(resp.StatusCode, nil, parseRetryAfter(resp)); classified != nil {
			return classified
		}

		r, rerr := d.classifyBody(body, candidate.URL)
		if rerr != nil {
			return &retry.Error{Kind: retry.KindInvalid, Err: rerr}
		}
		result = r
		return nil
	})
	return result, err
}

// classifyBody implements the spec's response classification (§4.5): a
// %PDF- header routes to PDF validation, HTML routes to the landing-page
// link extractor or the HTML-fallback check, anything else is a miss.
func (d *Downloader) classifyBody(body []byte, sourceURL string) (fetchResult, error) {
	if looksLikePDF(body) {
		if !validatePDF(body, d.MinPDFBytes) {
			return fetchResult{}, errors.New("pdf failed validation")
		}
		return fetchResult{kind: bodyPDF, data: body}, nil
	}
	if looksLikeHTML(body) {
		if link, ok := extractPDFLink(body, sourceURL); ok {
			return fetchResult{kind: bodyHTML, landingLink: link}, nil
		}
		if isRealHTML(body, d.MinHTMLBytes) {
			return fetchResult{kind: bodyHTML, data: body}, nil
		}
		return fetchResult{}, errors.New("html too small or looks like a block page")
	}
	return fetchResult{}, errors.New("unrecognized response body")
}

func looksLikePDF(body []byte) bool {
	return len(body) >= 5 && string(body[:5]) == "%PDF-"
}

// pdfHeaderParses is the third of §4.5's validation checks, overridable in
// tests since ledongthuc/pdf requires a byte-exact xref table even for a
// one-page document.
var pdfHeaderParses = func(body []byte) bool {
	_, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	return err == nil
}

// validatePDF enforces §4.5's three checks: header, minimum size, and a
// successful header-level parse.
func validatePDF(body []byte, minBytes int64) bool {
	if !looksLikePDF(body) {
		return false
	}
	if int64(len(body)) < minBytes {
		return false
	}
	return pdfHeaderParses(body)
}

func looksLikeHTML(body []byte) bool {
	return bytes.Contains(bytes.ToLower(body[:min(len(body), 2048)]), []byte("<html"))
}

// isRealHTML rejects stub/block pages: too small, or missing <html
// entirely is already filtered by looksLikeHTML; this adds the size floor
// spec §4.5 calls "real HTML (>N kB)".
func isRealHTML(body []byte, minBytes int) bool {
	return len(body) >= minBytes
}

// extractPDFLink looks for a citation_pdf_url meta tag or an <a> link
// pointing at a PDF, per §4.5's landing-page parser.
func extractPDFLink(body []byte, baseURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	if content, ok := doc.Find(`meta[name="citation_pdf_url"]`).Attr("content"); ok && content != "" {
		return resolveURL(baseURL, content), true
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)
		if strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "/pdf/") {
			found = resolveURL(baseURL, href)
			return false
		}
		return true
	})
	return found, found != ""
}

func resolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseIdx := strings.Index(base, "://")
	if baseIdx < 0 {
		return ref
	}
	schemeHostEnd := strings.Index(base[baseIdx+3:], "/")
	if schemeHostEnd < 0 {
		return base + ref
	}
	root := base[:baseIdx+3+schemeHostEnd]
	if strings.HasPrefix(ref, "/") {
		return root + ref
	}
	return strings.TrimSuffix(base, "/") + "/" + ref
}

func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func (d *Downloader) logInfo(geoID, pmid, msg string) {
	d.log(geoID, pmid, model.LogInfo, msg)
}

func (d *Downloader) logWarn(geoID, pmid, msg string) {
	d.log(geoID, pmid, model.LogWarn, msg)
}

func (d *Downloader) logError(geoID, pmid, msg string) {
	d.log(geoID, pmid, model.LogError, msg)
}

func (d *Downloader) log(geoID, pmid string, level model.LogLevel, msg string) {
	if d.Log != nil {
		switch level {
		case model.LogError:
			d.Log.Errorw(msg, "stage", "P3", "geo_id", geoID, "pmid", pmid)
		case model.LogWarn:
			d.Log.Warnw(msg, "stage", "P3", "geo_id", geoID, "pmid", pmid)
		default:
			d.Log.Infow(msg, "stage", "P3", "geo_id", geoID, "pmid", pmid)
		}
	}
	if d.Store != nil {
		_ = d.Store.Log(context.Background(), model.ProcessingLog{
			GEOID: geoID, PMID: pmid, Stage: model.StageP3, Level: level, Message: msg,
		})
	}
}
