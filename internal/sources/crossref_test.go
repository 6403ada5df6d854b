package sources

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/netutil"
	"github.com/omicsoracle/omicsoracle/internal/retry"
)

func TestCandidatesFromCrossrefClassifiesContentType(t *testing.T) {
	resp := crossrefMessageResponse{Message: crossrefWork{Link: []crossrefLink{
		{URL: "https://publisher.example.com/article.pdf", ContentType: "application/pdf"},
		{URL: "https://publisher.example.com/article.html", ContentType: "text/html"},
	}}}

	out := candidatesFromCrossref(resp)
	require.Len(t, out, 2)
	assert.Equal(t, model.URLTypePDFDirect, out[0].URLType)
	assert.Equal(t, 2, out[0].Priority)
	assert.Equal(t, model.URLTypeLandingPage, out[1].URLType)
}

func TestCandidatesFromCrossrefEmptyLinks(t *testing.T) {
	assert.Nil(t, candidatesFromCrossref(crossrefMessageResponse{}))
}

func TestCrossrefClientSkipsPublicationsWithoutDOI(t *testing.T) {
	c := NewCrossrefClient(http.DefaultClient, netutil.NewHostLimiter(4, 1000), retry.Policy{})
	out, err := c.Candidates(nil, model.Publication{})
	require.NoError(t, err)
	assert.Nil(t, out)
}
