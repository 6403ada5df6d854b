package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/netutil"
	"github.com/omicsoracle/omicsoracle/internal/retry"
)

const openAlexBaseURL = "https://api.openalex.org"

// openAlexWork is the subset of OpenAlex's Work object this client reads.
type openAlexWork struct {
	ID               string `json:"id"`
	DOI              string `json:"doi"`
	Title            string `json:"title"`
	PublicationYear  int    `json:"publication_year"`
	CitedByCount     int    `json:"cited_by_count"`
	PrimaryLocation  struct {
		Source struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	IDs struct {
		PMID string `json:"pmid"`
	} `json:"ids"`
}

type openAlexListResponse struct {
	Results []openAlexWork `json:"results"`
}

// OpenAlexClient implements CitationClient: key-less citing-paper
// enumeration via the `cites` filter (spec §4.2).
type OpenAlexClient struct {
	httpClient *http.Client
	limiter    *netutil.HostLimiter
	policy     retry.Policy
}

func NewOpenAlexClient(httpClient *http.Client, limiter *netutil.HostLimiter, policy retry.Policy) *OpenAlexClient {
	return &OpenAlexClient{httpClient: httpClient, limiter: limiter, policy: policy}
}

func (c *OpenAlexClient) Name() string { return "openalex" }

// Citing requires pub.OpenAlexID (a DOI is resolved to it on first use via
// the Work lookup-by-DOI endpoint, since OpenAlex IDs are its own
// namespace and most callers only have a DOI).
func (c *OpenAlexClient) Citing(ctx context.Context, pub model.Publication) ([]model.Publication, error) {
	workID := pub.OpenAlexID
	if workID == "" && pub.DOI != "" {
		resolved, err := c.resolveByDOI(ctx, pub.DOI)
		if err != nil {
			return nil, err
		}
		workID = resolved
	}
	if workID == "" {
		return nil, nil
	}

	list, err := c.listWorks(ctx, url.Values{"filter": {"cites:" + workID}, "per-page": {"200"}})
	if err != nil {
		return nil, err
	}
	return toPublications(list), nil
}

func (c *OpenAlexClient) resolveByDOI(ctx context.Context, doi string) (string, error) {
	endpoint := fmt.Sprintf("%s/works/https://doi.org/%s", openAlexBaseURL, strings.TrimPrefix(doi, "https://doi.org/"))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	var work openAlexWork
	if err := json.Unmarshal(body, &work); err != nil {
		return "", fmt.Errorf("openalex: parse work: %w", err)
	}
	return work.ID, nil
}

func (c *OpenAlexClient) listWorks(ctx context.Context, params url.Values) (openAlexListResponse, error) {
	endpoint := openAlexBaseURL + "/works?" + params.Encode()
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return openAlexListResponse{}, err
	}
	var list openAlexListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return openAlexListResponse{}, fmt.Errorf("openalex: parse list: %w", err)
	}
	return list, nil
}

func toPublications(list openAlexListResponse) []model.Publication {
	out := make([]model.Publication, 0, len(list.Results))
	for _, w := range list.Results {
		p := model.Publication{
			OpenAlexID: w.ID,
			DOI:        strings.TrimPrefix(w.DOI, "https://doi.org/"),
			PMID:       w.IDs.PMID,
			Title:      w.Title,
			Year:       w.PublicationYear,
			Citations:  w.CitedByCount,
			Journal:    w.PrimaryLocation.Source.DisplayName,
		}
		for _, a := range w.Authorships {
			p.Authors = append(p.Authors, a.Author.DisplayName)
		}
		out = append(out, p)
	}
	return out
}

func (c *OpenAlexClient) get(ctx context.Context, fullURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		release, err := c.limiter.Acquire(ctx, fullURL)
		if err != nil {
			return err
		}
		defer release()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("openalex: build request: %w", err)
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
