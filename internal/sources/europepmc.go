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

const europePMCBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

type europePMCResult struct {
	PMCID   string `json:"pmcid"`
	DOI     string `json:"doi"`
	IsOpenAccess string `json:"isOpenAccess"`
	FullTextURLList struct {
		FullTextURL []struct {
			DocumentStyle string `json:"documentStyle"`
			URL           string `json:"url"`
		} `json:"fullTextUrl"`
	} `json:"fullTextUrlList"`
}

type europePMCSearchResponse struct {
	ResultList struct {
		Result []europePMCResult `json:"result"`
	} `json:"resultList"`
}

// EuropePMCClient implements URLClient: a mirror/alternative PDF source
// (spec §4.2) independent of the NCBI PMC mirror used by PMCClient.
type EuropePMCClient struct {
	httpClient *http.Client
	limiter    *netutil.HostLimiter
	policy     retry.Policy
}

func NewEuropePMCClient(httpClient *http.Client, limiter *netutil.HostLimiter, policy retry.Policy) *EuropePMCClient {
	return &EuropePMCClient{httpClient: httpClient, limiter: limiter, policy: policy}
}

func (c *EuropePMCClient) Name() string { return "europepmc" }

func (c *EuropePMCClient) Candidates(ctx context.Context, pub model.Publication) ([]URLCandidate, error) {
	if pub.PMID == "" {
		return nil, nil
	}
	query := url.Values{
		"query":  {"ext_id:" + pub.PMID + " AND src:med"},
		"format": {"json"},
	}
	endpoint := europePMCBaseURL + "/search?" + query.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var resp europePMCSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("europepmc: parse search: %w", err)
	}
	if len(resp.ResultList.Result) == 0 {
		return nil, nil
	}

	result := resp.ResultList.Result[0]
	if result.IsOpenAccess != "Y" {
		return nil, nil
	}

	var out []URLCandidate
	for _, ft := range result.FullTextURLList.FullTextURL {
		urlType := ClassifyURL(ft.URL)
		if ft.DocumentStyle == "pdf" {
			urlType = model.URLTypePDFDirect
		}
		out = append(out, URLCandidate{
			URL:      ft.URL,
			URLType:  urlType,
			Evidence: "europepmc fullTextUrlList:" + ft.DocumentStyle,
			Priority: 1,
		})
	}
	return out, nil
}

func (c *EuropePMCClient) get(ctx context.Context, fullURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		release, err := c.limiter.Acquire(ctx, fullURL)
		if err != nil {
			return err
		}
		defer release()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("europepmc: build request: %w", err)
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
