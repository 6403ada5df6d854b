package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

func TestRecencyCurveScenario(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := recency(now.Year()-5, now)
	assert.InDelta(t, 0.4, got, 1e-9)
}

func TestRecencyCurveTailDecay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	age6 := recency(now.Year()-6, now)
	age7 := recency(now.Year()-7, now)
	assert.InDelta(t, 0.2, age6, 1e-9)
	assert.InDelta(t, 0.2*0.7, age7, 1e-9)
}

func TestCitationCountSaturatesAtOne(t *testing.T) {
	assert.Equal(t, 0.0, citationCount(0))
	assert.InDelta(t, 1.0, citationCount(9999), 1e-6)
	assert.InDelta(t, 1.0, citationCount(1_000_000), 1e-9)
}

func TestSpecScenarioWeightedTotal(t *testing.T) {
	// spec.md §8 scenario 6: age=5, citations=0, content_sim=0.5,
	// keyword_match=0.5 -> total = 0.5*0.4 + 0.5*0.3 + 0.4*0.2 + 0*0.1 = 0.43
	components := model.ScoreComponents{
		ContentSim:    0.5,
		KeywordMatch:  0.5,
		Recency:       0.4,
		CitationCount: 0,
	}
	total := weightContentSim*components.ContentSim +
		weightKeywordMatch*components.KeywordMatch +
		weightRecency*components.Recency +
		weightCitationCount*components.CitationCount
	assert.InDelta(t, 0.43, total, 1e-6)
}

func TestKeywordMatchStemsAndSingularizes(t *testing.T) {
	geo := model.GEOSeriesMetadata{Keywords: []string{"neurons", "regulation"}}
	pub := model.Publication{
		Title:    "A study of neuron regulating pathways",
		Abstract: "",
	}
	got := keywordMatch(geo, pub)
	assert.Equal(t, 1.0, got)
}

func TestKeywordMatchNoOverlap(t *testing.T) {
	geo := model.GEOSeriesMetadata{Keywords: []string{"apoptosis"}}
	pub := model.Publication{Title: "unrelated topic entirely"}
	got := keywordMatch(geo, pub)
	assert.Equal(t, 0.0, got)
}

func TestContentSimIdentical(t *testing.T) {
	geo := model.GEOSeriesMetadata{Title: "Gene expression study", Summary: "details"}
	pub := model.Publication{Title: "Gene expression study", Abstract: "details"}
	assert.Equal(t, 1.0, contentSim(geo, pub))
}

func TestScoreWeightsVersionStamped(t *testing.T) {
	geo := model.GEOSeriesMetadata{Title: "x", Keywords: []string{"x"}}
	pub := model.Publication{Title: "x", Year: time.Now().Year()}
	score := Score(geo, pub, time.Now())
	assert.Equal(t, WeightsVersion, score.WeightsVersion)
	assert.GreaterOrEqual(t, score.Total, 0.0)
	assert.LessOrEqual(t, score.Total, 1.0)
}
