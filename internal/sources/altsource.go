package sources

import (
	"context"
	"strings"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// AltSourceClient implements URLClient for configurable "alternative
// sources" (spec §4.2: "Alternative sources | optional, configurable") —
// mirrors outside the open-access ecosystem. config.defaultEnabledSources
// omits "altsource", and cmd/omicsoracle's newApp never constructs this
// client, so it is not queried even when ENABLE_SOURCES names it. This
// client itself is a dumb URL-template rewriter and has no policy opinion
// of its own.
type AltSourceClient struct {
	Name_       string
	URLTemplate string
}

func NewAltSourceClient(name, urlTemplate string) *AltSourceClient {
	return &AltSourceClient{Name_: name, URLTemplate: urlTemplate}
}

func (c *AltSourceClient) Name() string { return c.Name_ }

func (c *AltSourceClient) Candidates(ctx context.Context, pub model.Publication) ([]URLCandidate, error) {
	if c.URLTemplate == "" || pub.DOI == "" {
		return nil, nil
	}
	rewritten := strings.ReplaceAll(c.URLTemplate, "{doi}", pub.DOI)
	return []URLCandidate{{
		URL: rewritten, URLType: ClassifyURL(rewritten),
		Evidence: "alt-source template rewrite", Priority: 5,
	}}, nil
}
