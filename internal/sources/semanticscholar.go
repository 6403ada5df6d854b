package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/netutil"
	"github.com/omicsoracle/omicsoracle/internal/retry"
)

const semanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1"

type s2Paper struct {
	PaperID   string `json:"paperId"`
	ExternalIDs struct {
		DOI    string `json:"DOI"`
		PubMed string `json:"PubMed"`
	} `json:"externalIds"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Venue     string `json:"venue"`
	CitationCount int `json:"citationCount"`
	Authors   []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

type s2CitationsResponse struct {
	Data []struct {
		CitingPaper s2Paper `json:"citingPaper"`
	} `json:"data"`
}

// SemanticScholarClient implements CitationClient against the free-tier
// Graph API's /paper/{id}/citations endpoint (spec §4.2: "adds coverage").
type SemanticScholarClient struct {
	httpClient *http.Client
	limiter    *netutil.HostLimiter
	apiKey     string
	policy     retry.Policy
}

func NewSemanticScholarClient(httpClient *http.Client, limiter *netutil.HostLimiter, apiKey string, policy retry.Policy) *SemanticScholarClient {
	return &SemanticScholarClient{httpClient: httpClient, limiter: limiter, apiKey: apiKey, policy: policy}
}

func (c *SemanticScholarClient) Name() string { return "semanticscholar" }

// Citing identifies the paper by DOI (preferred) or PMID, since Semantic
// Scholar accepts either as a prefixed external-id path segment.
func (c *SemanticScholarClient) Citing(ctx context.Context, pub model.Publication) ([]model.Publication, error) {
	id := externalID(pub)
	if id == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/paper/%s/citations?fields=title,year,venue,citationCount,authors,externalIds", semanticScholarBaseURL, id)
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp s2CitationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("semanticscholar: parse citations: %w", err)
	}

	out := make([]model.Publication, 0, len(resp.Data))
	for _, d := range resp.Data {
		p := d.CitingPaper
		pub := model.Publication{
			DOI:       p.ExternalIDs.DOI,
			PMID:      p.ExternalIDs.PubMed,
			Title:     p.Title,
			Year:      p.Year,
			Journal:   p.Venue,
			Citations: p.CitationCount,
		}
		for _, a := range p.Authors {
			pub.Authors = append(pub.Authors, a.Name)
		}
		out = append(out, pub)
	}
	return out, nil
}

func externalID(pub model.Publication) string {
	if pub.DOI != "" {
		return "DOI:" + pub.DOI
	}
	if pub.PMID != "" {
		return "PMID:" + pub.PMID
	}
	return ""
}

func (c *SemanticScholarClient) get(ctx context.Context, fullURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		release, err := c.limiter.Acquire(ctx, fullURL)
		if err != nil {
			return err
		}
		defer release()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("semanticscholar: build request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.Classify(0, err, 0)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return retry.Classify(resp.StatusCode, nil, 0)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.Classify(0, err, 0)
		}
		body = data
		return nil
	})
	return body, err
}
