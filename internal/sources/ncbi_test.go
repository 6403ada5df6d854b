package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePubMedDocSum(t *testing.T) {
	ds := docSum{
		ID: "41034176",
		Items: []item{
			{Name: "Title", Content: "A Study of Something"},
			{Name: "FullJournalName", Content: "Journal of Examples"},
			{Name: "PubDate", Content: "2024 Jun 15"},
			{Name: "ArticleIds", Items: []item{
				{Name: "doi", Content: "10.1000/xyz"},
				{Name: "pmc", Content: "PMC11460852"},
			}},
			{Name: "AuthorList", Items: []item{
				{Name: "Author", Content: "Smith J"},
				{Name: "Author", Content: "Doe A"},
			}},
		},
	}

	pub := parsePubMedDocSum(ds)
	assert.Equal(t, "41034176", pub.PMID)
	assert.Equal(t, "A Study of Something", pub.Title)
	assert.Equal(t, "Journal of Examples", pub.Journal)
	assert.Equal(t, 2024, pub.Year)
	assert.Equal(t, "10.1000/xyz", pub.DOI)
	assert.Equal(t, "PMC11460852", pub.PMCID)
	assert.Equal(t, []string{"Smith J", "Doe A"}, pub.Authors)
}

func TestFirstFourDigits(t *testing.T) {
	assert.Equal(t, "2024", firstFourDigits("2024 Jun 15"))
	assert.Equal(t, "", firstFourDigits("no digits here"))
	assert.Equal(t, "1999", firstFourDigits("1999"))
}
