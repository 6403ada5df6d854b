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

const crossrefBaseURL = "https://api.crossref.org/works"

type crossrefLink struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}

type crossrefWork struct {
	Link []crossrefLink `json:"link"`
}

type crossrefMessageResponse struct {
	Message crossrefWork `json:"message"`
}

// CrossrefClient implements URLClient: DOI → content links (spec §4.2),
// reading the `link` array Crossref publishes for many member publishers.
type CrossrefClient struct {
	httpClient *http.Client
	limiter    *netutil.HostLimiter
	policy     retry.Policy
}

func NewCrossrefClient(httpClient *http.Client, limiter *netutil.HostLimiter, policy retry.Policy) *CrossrefClient {
	return &CrossrefClient{httpClient: httpClient, limiter: limiter, policy: policy}
}

func (c *CrossrefClient) Name() string { return "crossref" }

func (c *CrossrefClient) Candidates(ctx context.Context, pub model.Publication) ([]URLCandidate, error) {
	if pub.DOI == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/%s", crossrefBaseURL, pub.DOI)
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp crossrefMessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("crossref: parse: %w", err)
	}

	return candidatesFromCrossref(resp), nil
}

func candidatesFromCrossref(resp crossrefMessageResponse) []URLCandidate {
	var out []URLCandidate
	for _, link := range resp.Message.Link {
		urlType := model.URLTypeLandingPage
		if link.ContentType == "application/pdf" {
			urlType = model.URLTypePDFDirect
		} else {
			urlType = ClassifyURL(link.URL)
		}
		out = append(out, URLCandidate{
			URL:      link.URL,
			URLType:  urlType,
			Evidence: "crossref link content-type:" + link.ContentType,
			Priority: 2,
		})
	}
	return out
}

func (c *CrossrefClient) get(ctx context.Context, fullURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		release, err := c.limiter.Acquire(ctx, fullURL)
		if err != nil {
			return err
		}
		defer release()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("crossref: build request: %w", err)
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
