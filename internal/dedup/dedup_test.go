package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

func TestCanonicalKeyPrecedence(t *testing.T) {
	assert.Equal(t, "pmid:123", CanonicalKey(model.Publication{PMID: "123", DOI: "10.1/x", Title: "T"}))
	assert.Equal(t, "doi:10.1/x", CanonicalKey(model.Publication{DOI: "10.1/x", Title: "T"}))
	assert.Equal(t, "title:a study of things", CanonicalKey(model.Publication{Title: "A Study of Things!"}))
}

func TestNormalizeTitle(t *testing.T) {
	got := NormalizeTitle("  A Study:  Of   Things!!  ")
	assert.Equal(t, "a study of things", got)
}

func TestNormalizeTitleFoldsDiacritics(t *testing.T) {
	got := NormalizeTitle("Étude de Saccharomycès")
	assert.Equal(t, "etude de saccharomyces", got)
}

func TestTitleSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 1.0, TitleSimilarity("Same Title", "same title"))
}

func TestTitleSimilarityNearDuplicateAboveGate(t *testing.T) {
	sim := TitleSimilarity(
		"Single-cell RNA sequencing reveals heterogeneity in tumor microenvironment",
		"Single cell RNA sequencing reveals heterogeneity in the tumor microenvironment",
	)
	assert.GreaterOrEqual(t, sim, TitleSimilarityThreshold)
}

func TestTitleSimilarityDistinctBelowGate(t *testing.T) {
	sim := TitleSimilarity(
		"Single-cell RNA sequencing reveals heterogeneity",
		"A completely unrelated study about soil bacteria metabolism",
	)
	assert.Less(t, sim, TitleSimilarityThreshold)
}

func TestJaccardWordOverlapNeverGatesAlone(t *testing.T) {
	merge, evidence := SameTitleRecord(
		model.Publication{Title: "gene expression in mouse liver tissue"},
		model.Publication{Title: "liver tissue gene expression mouse study"},
	)
	// High word overlap (same bag of words, different order/extra word) but
	// low prefix similarity must NOT merge on its own.
	jaccard := JaccardWordOverlap(
		"gene expression in mouse liver tissue",
		"liver tissue gene expression mouse study",
	)
	assert.Greater(t, jaccard, 0.5)
	assert.False(t, merge)
	if !merge {
		assert.Empty(t, evidence, "evidence only recorded for the 0.8-0.9 borderline band")
	}
}

func TestMergePublicationsFillsOrthogonalFields(t *testing.T) {
	a := model.Publication{PMID: "1", Title: "T", DOI: "10.1/x"}
	b := model.Publication{PMID: "1", Journal: "Nature", Year: 2024, Citations: 5}

	merged := MergePublications(a, b)
	assert.Equal(t, "1", merged.PMID)
	assert.Equal(t, "T", merged.Title)
	assert.Equal(t, "Nature", merged.Journal)
	assert.Equal(t, 2024, merged.Year)
}

func TestDeduplicatePublicationsByPMID(t *testing.T) {
	pubs := []model.Publication{
		{PMID: "1", Title: "T", Journal: "A"},
		{PMID: "1", Title: "T", Citations: 10},
		{PMID: "2", Title: "Other"},
	}
	out := DeduplicatePublications(pubs)
	assert.Len(t, out, 2)
}
