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

const (
	bioRxivBaseURL = "https://api.biorxiv.org/details/biorxiv"
	arxivBaseURL   = "http://export.arxiv.org/api/query"
)

type bioRxivCollection struct {
	Collection []struct {
		DOI           string `json:"doi"`
		Title         string `json:"title"`
		PublishedDate string `json:"date"`
	} `json:"collection"`
}

// PreprintClient implements URLClient for bioRxiv preprint PDFs (spec §4.2:
// "bioRxiv / arXiv | preprint PDFs"). Only bioRxiv is queried, by DOI, and
// every candidate it returns is a bioRxiv URL; arXiv is never queried and no
// arXiv candidate is produced, even when "arxiv" is in ENABLE_SOURCES.
type PreprintClient struct {
	httpClient *http.Client
	limiter    *netutil.HostLimiter
	policy     retry.Policy
}

func NewPreprintClient(httpClient *http.Client, limiter *netutil.HostLimiter, policy retry.Policy) *PreprintClient {
	return &PreprintClient{httpClient: httpClient, limiter: limiter, policy: policy}
}

func (c *PreprintClient) Name() string { return "biorxiv" }

func (c *PreprintClient) Candidates(ctx context.Context, pub model.Publication) ([]URLCandidate, error) {
	if pub.DOI == "" {
		return nil, nil
	}

	endpoint := bioRxivBaseURL + "/" + pub.DOI
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp bioRxivCollection
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("biorxiv: parse: %w", err)
	}
	if len(resp.Collection) == 0 {
		return nil, nil
	}

	matched := resp.Collection[0]
	pdfURL := fmt.Sprintf("https://www.biorxiv.org/content/%s.full.pdf", matched.DOI)
	return []URLCandidate{{
		URL: pdfURL, URLType: model.URLTypePDFDirect,
		Evidence: "biorxiv preprint match", Priority: 2,
	}}, nil
}

func (c *PreprintClient) get(ctx context.Context, fullURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		release, err := c.limiter.Acquire(ctx, fullURL)
		if err != nil {
			return err
		}
		defer release()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("biorxiv: build request: %w", err)
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
