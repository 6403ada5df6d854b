package sources

import (
	"context"
	"strings"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// InstitutionalClient implements URLClient for an institution's proxy
// rewrite rule (spec §4.2: "Institutional access | optional, configured").
// With no BaseURL configured it is inert; operators wire a real proxy
// template ("https://proxy.example.edu/login?url={doi_url}") via config.
type InstitutionalClient struct {
	// URLTemplate must contain the literal "{doi}" placeholder.
	URLTemplate string
}

func NewInstitutionalClient(urlTemplate string) *InstitutionalClient {
	return &InstitutionalClient{URLTemplate: urlTemplate}
}

func (c *InstitutionalClient) Name() string { return "institutional" }

func (c *InstitutionalClient) Candidates(ctx context.Context, pub model.Publication) ([]URLCandidate, error) {
	if c.URLTemplate == "" || pub.DOI == "" {
		return nil, nil
	}
	rewritten := strings.ReplaceAll(c.URLTemplate, "{doi}", pub.DOI)
	return []URLCandidate{{
		URL: rewritten, URLType: model.URLTypeLandingPage,
		Evidence: "institutional proxy rewrite", Priority: 4,
	}}, nil
}
