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

const unpaywallBaseURL = "https://api.unpaywall.org/v2"

type unpaywallLocation struct {
	URLForPDF        string `json:"url_for_pdf"`
	URL              string `json:"url"`
	HostType         string `json:"host_type"`
}

type unpaywallResponse struct {
	IsOA         bool                `json:"is_oa"`
	BestOALocation *unpaywallLocation `json:"best_oa_location"`
	OALocations  []unpaywallLocation `json:"oa_locations"`
}

// UnpaywallClient implements URLClient. It must honor is_oa=false by
// returning no candidates (spec §4.4 Policy) — that check happens before
// any location is ever inspected.
type UnpaywallClient struct {
	httpClient *http.Client
	limiter    *netutil.HostLimiter
	email      string
	policy     retry.Policy
}

func NewUnpaywallClient(httpClient *http.Client, limiter *netutil.HostLimiter, email string, policy retry.Policy) *UnpaywallClient {
	return &UnpaywallClient{httpClient: httpClient, limiter: limiter, email: email, policy: policy}
}

func (c *UnpaywallClient) Name() string { return "unpaywall" }

func (c *UnpaywallClient) Candidates(ctx context.Context, pub model.Publication) ([]URLCandidate, error) {
	if pub.DOI == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/%s?%s", unpaywallBaseURL, pub.DOI, url.Values{"email": {c.email}}.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp unpaywallResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unpaywall: parse: %w", err)
	}
	return candidatesFromUnpaywall(resp), nil
}

// candidatesFromUnpaywall is pulled out of Candidates so the is_oa=false
// policy and location-dedup logic can be tested without a live HTTP round
// trip (spec §4.4 Policy: "Unpaywall must honor is_oa=false").
func candidatesFromUnpaywall(resp unpaywallResponse) []URLCandidate {
	if !resp.IsOA {
		return nil
	}

	var out []URLCandidate
	seen := make(map[string]bool)
	locations := resp.OALocations
	if resp.BestOALocation != nil {
		locations = append([]unpaywallLocation{*resp.BestOALocation}, locations...)
	}
	for i, loc := range locations {
		candidateURL := loc.URLForPDF
		urlType := model.URLTypePDFDirect
		if candidateURL == "" {
			candidateURL = loc.URL
			urlType = ClassifyURL(candidateURL)
		}
		if candidateURL == "" || seen[candidateURL] {
			continue
		}
		seen[candidateURL] = true
		priority := 1
		if i == 0 {
			priority = 0
		}
		out = append(out, URLCandidate{
			URL:      candidateURL,
			URLType:  urlType,
			Evidence: "unpaywall oa_location host_type:" + loc.HostType,
			Priority: priority,
		})
	}
	return out
}

func (c *UnpaywallClient) get(ctx context.Context, fullURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		release, err := c.limiter.Acquire(ctx, fullURL)
		if err != nil {
			return err
		}
		defer release()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("unpaywall: build request: %w", err)
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
