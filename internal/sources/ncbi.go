package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/netutil"
	"github.com/omicsoracle/omicsoracle/internal/retry"
)

const ncbiBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// eSummaryResult and docSum mirror the subset of NCBI's ESummary XML this
// client reads — PubMed eSummary responses use free-form <Item Name=...>
// fields rather than a fixed schema, the same shape the GEO eSummary
// metadata client in the pack reads for GDS records.
type eSummaryResult struct {
	XMLName xml.Name `xml:"eSummaryResult"`
	DocSum  []docSum `xml:"DocSum"`
}

type docSum struct {
	ID    string `xml:"Id"`
	Items []item `xml:"Item"`
}

type item struct {
	Name    string `xml:"Name,attr"`
	Content string `xml:",chardata"`
	Items   []item `xml:"Item"`
}

type eSearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	IDList  struct {
		IDs []string `xml:"Id"`
	} `xml:"IdList"`
}

type eLinkResult struct {
	XMLName  xml.Name `xml:"eLinkResult"`
	LinkSets []struct {
		LinkSetDbs []struct {
			LinkName string `xml:"LinkName"`
			Links    []struct {
				ID string `xml:"Id"`
			} `xml:"Link"`
		} `xml:"LinkSetDb"`
	} `xml:"LinkSet"`
}

// NCBIClient implements MetadataClient (ESummary for a seed PMID) and
// CitationClient (ELink "pubmed_pubmed_citedin", §4.3's optional PubMed
// "cited-by" source).
type NCBIClient struct {
	httpClient *http.Client
	limiter    *netutil.HostLimiter
	email      string
	apiKey     string
	policy     retry.Policy
}

func NewNCBIClient(httpClient *http.Client, limiter *netutil.HostLimiter, email, apiKey string, policy retry.Policy) *NCBIClient {
	return &NCBIClient{httpClient: httpClient, limiter: limiter, email: email, apiKey: apiKey, policy: policy}
}

func (c *NCBIClient) Name() string { return "ncbi" }

// Resolve fetches the ESummary record for a PMID and enriches it with the
// DOI pulled from its ArticleIds, so P1 step 1 can decide whether this seed
// has enough identity to drive citation queries.
func (c *NCBIClient) Resolve(ctx context.Context, pmid string) (model.Publication, error) {
	body, err := c.get(ctx, ncbiBaseURL+"/esummary.fcgi", url.Values{
		"db": {"pubmed"}, "id": {pmid}, "retmode": {"xml"},
	})
	if err != nil {
		return model.Publication{}, err
	}

	var res eSummaryResult
	if err := xml.Unmarshal(body, &res); err != nil {
		return model.Publication{}, fmt.Errorf("ncbi: parse esummary: %w", err)
	}
	if len(res.DocSum) == 0 {
		return model.Publication{}, retry.Classify(http.StatusNotFound, nil, 0)
	}

	return parsePubMedDocSum(res.DocSum[0]), nil
}

// Citing fans out via ELink's pubmed_pubmed_citedin link to find papers
// that cite pub.PMID.
func (c *NCBIClient) Citing(ctx context.Context, pub model.Publication) ([]model.Publication, error) {
	if pub.PMID == "" {
		return nil, nil
	}

	body, err := c.get(ctx, ncbiBaseURL+"/elink.fcgi", url.Values{
		"dbfrom": {"pubmed"}, "db": {"pubmed"}, "id": {pub.PMID},
		"linkname": {"pubmed_pubmed_citedin"}, "retmode": {"xml"},
	})
	if err != nil {
		return nil, err
	}

	var res eLinkResult
	if err := xml.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("ncbi: parse elink: %w", err)
	}

	var ids []string
	for _, set := range res.LinkSets {
		for _, db := range set.LinkSetDbs {
			for _, l := range db.Links {
				ids = append(ids, l.ID)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	summaries, err := c.summarizeMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (c *NCBIClient) summarizeMany(ctx context.Context, pmids []string) ([]model.Publication, error) {
	body, err := c.get(ctx, ncbiBaseURL+"/esummary.fcgi", url.Values{
		"db": {"pubmed"}, "id": {joinComma(pmids)}, "retmode": {"xml"},
	})
	if err != nil {
		return nil, err
	}

	var res eSummaryResult
	if err := xml.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("ncbi: parse esummary batch: %w", err)
	}

	pubs := make([]model.Publication, 0, len(res.DocSum))
	for _, ds := range res.DocSum {
		pubs = append(pubs, parsePubMedDocSum(ds))
	}
	return pubs, nil
}

func parsePubMedDocSum(ds docSum) model.Publication {
	pub := model.Publication{PMID: ds.ID}
	for _, it := range ds.Items {
		switch it.Name {
		case "Title":
			pub.Title = it.Content
		case "FullJournalName", "Source":
			if pub.Journal == "" {
				pub.Journal = it.Content
			}
		case "PubDate":
			if y, err := strconv.Atoi(firstFourDigits(it.Content)); err == nil {
				pub.Year = y
			}
		case "ArticleIds":
			for _, sub := range it.Items {
				if sub.Name == "doi" {
					pub.DOI = sub.Content
				}
				if sub.Name == "pmc" {
					pub.PMCID = sub.Content
				}
			}
		case "AuthorList":
			for _, sub := range it.Items {
				if sub.Name == "Author" {
					pub.Authors = append(pub.Authors, sub.Content)
				}
			}
		}
	}
	return pub
}

func firstFourDigits(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start == -1 {
				start = i
			}
			if i-start == 3 {
				return s[start : i+1]
			}
		} else {
			start = -1
		}
	}
	return ""
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// get performs one rate-limited, retried GET against NCBI E-utilities,
// stamping tool/email/api_key as NCBI's usage policy requires.
func (c *NCBIClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("tool", "omicsoracle")
	params.Set("email", c.email)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	fullURL := endpoint + "?" + params.Encode()

	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		release, err := c.limiter.Acquire(ctx, fullURL)
		if err != nil {
			return err
		}
		defer release()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("ncbi: build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.Classify(0, err, 0)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			return retry.Classify(resp.StatusCode, nil, retryAfter)
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

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
