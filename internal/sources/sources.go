// Package sources implements one narrow client per external data provider
// (spec §4.2): NCBI E-utilities, OpenAlex, Semantic Scholar, PMC, Europe PMC,
// Unpaywall, Crossref, CORE, bioRxiv/arXiv, plus configurable institutional
// and alternative-source stubs. Every client shares one *http.Client and one
// netutil.HostLimiter pair so per-host concurrency and rate limits are
// enforced centrally rather than per-adapter.
package sources

import (
	"context"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// CitationClient enumerates papers citing a publication (§4.2's
// citation_client.citing contract). Used by P1.
type CitationClient interface {
	Name() string
	Citing(ctx context.Context, pub model.Publication) ([]model.Publication, error)
}

// URLCandidate is one location a URLClient believes may yield article bytes.
type URLCandidate struct {
	URL      string
	URLType  model.URLType
	Evidence string
	Priority int
}

// URLClient proposes zero or more candidate URLs for a publication (§4.2's
// url_client.fetch_candidate contract, generalized to return all candidates
// a source can offer rather than just one). Used by P2.
type URLClient interface {
	Name() string
	Candidates(ctx context.Context, pub model.Publication) ([]URLCandidate, error)
}

// MetadataClient resolves a seed PMID to a full Publication record,
// including DOI/PMCID enrichment (§4.3 step 1). The NCBI implementation
// does not fill OpenAlexID.
type MetadataClient interface {
	Resolve(ctx context.Context, pmid string) (model.Publication, error)
}
