package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/netutil"
	"github.com/omicsoracle/omicsoracle/internal/retry"
)

const coreBaseURL = "https://api.core.ac.uk/v3"

type coreSearchResult struct {
	Results []struct {
		DownloadURL string `json:"downloadUrl"`
		FullTextLinks []struct {
			URL  string `json:"url"`
			Type string `json:"type"`
		} `json:"fullTextLinks"`
	} `json:"results"`
}

// COREClient implements URLClient against the CORE open-access aggregator
// (spec §4.2), searching by DOI and reading its downloadUrl/fullTextLinks.
type COREClient struct {
	httpClient *http.Client
	limiter    *netutil.HostLimiter
	apiKey     string
	policy     retry.Policy
}

func NewCOREClient(httpClient *http.Client, limiter *netutil.HostLimiter, apiKey string, policy retry.Policy) *COREClient {
	return &COREClient{httpClient: httpClient, limiter: limiter, apiKey: apiKey, policy: policy}
}

func (c *COREClient) Name() string { return "core" }

func (c *COREClient) Candidates(ctx context.Context, pub model.Publication) ([]URLCandidate, error) {
	if pub.DOI == "" {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, nil
	}

	query := url.Values{"q": {"doi:\"" + pub.DOI + "\""}}
	endpoint := coreBaseURL + "/search/works?" + query.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var resp coreSearchResult
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("core: parse: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	result := resp.Results[0]
	var out []URLCandidate
	if result.DownloadURL != "" {
		out = append(out, URLCandidate{
			URL: result.DownloadURL, URLType: model.URLTypePDFDirect,
			Evidence: "core downloadUrl", Priority: 2,
		})
	}
	for _, link := range result.FullTextLinks {
		out = append(out, URLCandidate{
			URL: link.URL, URLType: ClassifyURL(link.URL),
			Evidence: "core fullTextLinks:" + link.Type, Priority: 3,
		})
	}
	return out, nil
}

func (c *COREClient) get(ctx context.Context, fullURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		release, err := c.limiter.Acquire(ctx, fullURL)
		if err != nil {
			return err
		}
		defer release()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("core: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
