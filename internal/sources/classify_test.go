package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

func TestClassifyURL(t *testing.T) {
	cases := []struct {
		url  string
		want model.URLType
	}{
		{"https://example.com/paper.pdf", model.URLTypePDFDirect},
		{"https://www.ncbi.nlm.nih.gov/pmc/articles/PMC123/pdf/", model.URLTypePDFDirect},
		{"https://europepmc.org/articles/PMC123?pdf=render", model.URLTypePDFDirect},
		{"https://doi.org/10.1000/xyz123", model.URLTypeDOIResolver},
		{"https://www.ncbi.nlm.nih.gov/pmc/articles/PMC123/?report=reader", model.URLTypeLandingPage},
		{"https://www.ncbi.nlm.nih.gov/pmc/articles/PMC123/", model.URLTypeHTMLFulltext},
		{"https://publisher.example.com/article/10.1/abc", model.URLTypeLandingPage},
		{"not a url \x7f", model.URLTypeUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyURL(tc.url), tc.url)
	}
}

func TestPMCClientGeneratesFourPatterns(t *testing.T) {
	c := NewPMCClient()
	cands, err := c.Candidates(nil, model.Publication{PMCID: "PMC11460852"})
	assert.NoError(t, err)
	assert.Len(t, cands, 4)
	assert.Equal(t, model.URLTypePDFDirect, cands[0].URLType)
	assert.Equal(t, model.URLTypeLandingPage, cands[3].URLType)
}

func TestPMCClientNoIDNoCandidates(t *testing.T) {
	c := NewPMCClient()
	cands, err := c.Candidates(nil, model.Publication{})
	assert.NoError(t, err)
	assert.Nil(t, cands)
}
