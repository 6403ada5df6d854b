package sources

import (
	"context"
	"fmt"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// PMCClient implements URLClient by generating the ≥4 URL patterns spec
// §4.3/§4.4 requires, without making any network call itself — P3's
// waterfall is what actually tries each pattern. Ordering here reflects
// pattern reliability, most direct first, the reader view last resort.
type PMCClient struct{}

func NewPMCClient() *PMCClient { return &PMCClient{} }

func (c *PMCClient) Name() string { return "pmc" }

func (c *PMCClient) Candidates(ctx context.Context, pub model.Publication) ([]URLCandidate, error) {
	if pub.PMCID == "" {
		return nil, nil
	}
	id := pub.PMCID
	subdir := oaSubdir(id)

	candidates := []URLCandidate{
		{
			URL:      fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/pdf/", id),
			URLType:  model.URLTypePDFDirect,
			Evidence: "pmc direct pdf path",
			Priority: 0,
		},
		{
			URL:      fmt.Sprintf("https://ftp.ncbi.nlm.nih.gov/pub/pmc/oa_pdf/%s/%s.pdf", subdir, id),
			URLType:  model.URLTypePDFDirect,
			Evidence: "pmc open-access ftp mirror",
			Priority: 1,
		},
		{
			URL:      fmt.Sprintf("https://europepmc.org/articles/%s?pdf=render", id),
			URLType:  model.URLTypePDFDirect,
			Evidence: "europepmc render mirror",
			Priority: 2,
		},
		{
			URL:      fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/?report=reader", id),
			URLType:  model.URLTypeLandingPage,
			Evidence: "pmc reader view, last resort",
			Priority: 3,
		},
	}
	return candidates, nil
}

// oaSubdir derives the two-level hex subdirectory the PMC open-access FTP
// mirror expects, built from the last two digits of the PMCID's numeric
// suffix ("PMC11460852" -> "5/52" becomes "50/52") — the mirror buckets
// files this way to keep any one directory from holding millions of entries.
func oaSubdir(pmcid string) string {
	digits := ""
	for _, r := range pmcid {
		if r >= '0' && r <= '9' {
			digits += string(r)
		}
	}
	if len(digits) < 2 {
		return "00/00"
	}
	last2 := digits[len(digits)-2:]
	return last2[:1] + "0/" + last2
}
