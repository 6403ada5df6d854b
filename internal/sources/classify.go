package sources

import (
	"net/url"
	"strings"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// ClassifyURL applies the closed-set heuristics from spec §4.2: suffix,
// host, and path shape decide url_type. Classification never inspects
// response bytes — that is P3's job; this only judges what the URL string
// itself promises.
func ClassifyURL(rawURL string) model.URLType {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.URLTypeUnknown
	}
	path := strings.ToLower(u.Path)
	host := strings.ToLower(u.Host)

	switch {
	case strings.HasSuffix(path, ".pdf"):
		return model.URLTypePDFDirect
	case strings.Contains(host, "ncbi.nlm.nih.gov") && strings.Contains(path, "/pmc/") && strings.Contains(path, "/pdf"):
		return model.URLTypePDFDirect
	case strings.Contains(host, "europepmc.org") && strings.Contains(u.RawQuery, "pdf=render"):
		return model.URLTypePDFDirect
	case isDOIHost(host):
		return model.URLTypeDOIResolver
	case strings.Contains(path, "/pmc/") && (strings.Contains(path, "report=reader") || strings.Contains(u.RawQuery, "report=reader")):
		return model.URLTypeLandingPage
	case strings.Contains(host, "ncbi.nlm.nih.gov") && strings.Contains(path, "/pmc/articles/"):
		return model.URLTypeHTMLFulltext
	default:
		// Anything else that parsed as a URL is assumed to be an ordinary
		// publisher page worth scraping for a PDF link (spec §4.2); only a
		// URL that failed to parse above is genuinely Unknown.
		return model.URLTypeLandingPage
	}
}

// isDOIHost reports whether host is a bare DOI resolver (doi.org and its
// mirrors), as opposed to a publisher host that merely contains "doi" in a
// subdomain.
func isDOIHost(host string) bool {
	switch host {
	case "doi.org", "dx.doi.org", "www.doi.org":
		return true
	default:
		return false
	}
}
