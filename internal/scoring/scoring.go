// Package scoring computes the relevance_score components and their
// weighted total (spec §4.9).
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/gedex/inflector"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/surgebase/porter2"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// WeightsVersion is pinned per DESIGN.md's Open Question decisions; bump it
// whenever the weights or component formulas below change, so historical
// scores remain interpretable.
const WeightsVersion = "v1"

const (
	weightContentSim    = 0.40
	weightKeywordMatch  = 0.30
	weightRecency       = 0.20
	weightCitationCount = 0.10
)

// Score computes every component and the weighted total for one citing
// paper against its GEO series (spec §4.3 step 4, §4.9).
func Score(geo model.GEOSeriesMetadata, pub model.Publication, now time.Time) model.RelevanceScore {
	components := model.ScoreComponents{
		ContentSim:    contentSim(geo, pub),
		KeywordMatch:  keywordMatch(geo, pub),
		Recency:       recency(pub.Year, now),
		CitationCount: citationCount(pub.Citations),
	}
	total := weightContentSim*components.ContentSim +
		weightKeywordMatch*components.KeywordMatch +
		weightRecency*components.Recency +
		weightCitationCount*components.CitationCount

	return model.RelevanceScore{
		Total:          total,
		Components:     components,
		WeightsVersion: WeightsVersion,
		ComputedAt:     now,
	}
}

// contentSim is a character-level Ratcliff/Obershelp-style similarity
// between "GEO.title + GEO.summary" and "paper.title + paper.abstract",
// computed from go-diff's Levenshtein distance over normalized text —
// the same technique internal/dedup uses for title matching.
func contentSim(geo model.GEOSeriesMetadata, pub model.Publication) float64 {
	a := normalize(geo.Title + " " + geo.Summary)
	b := normalize(pub.Title + " " + pub.Abstract)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	sim := 1 - float64(distance)/float64(maxLen)
	if sim < 0 {
		sim = 0
	}
	return sim
}

// keywordMatch is the fraction of GEO keywords present in the paper's
// title, abstract, author keywords, or MeSH terms — each side singularized
// and Porter2-stemmed before comparison so "neuron"/"neurons" and
// "regulate"/"regulation" count as the same keyword.
func keywordMatch(geo model.GEOSeriesMetadata, pub model.Publication) float64 {
	if len(geo.Keywords) == 0 {
		return 0
	}

	haystack := make(map[string]bool)
	for _, field := range tokenize(pub.Title + " " + pub.Abstract) {
		haystack[stemWord(field)] = true
	}
	for _, kw := range append(append([]string{}, pub.Keywords...), pub.MeshTerms...) {
		haystack[stemWord(kw)] = true
	}

	matched := 0
	for _, kw := range geo.Keywords {
		if haystack[stemWord(kw)] {
			matched++
		}
	}
	return float64(matched) / float64(len(geo.Keywords))
}

func stemWord(w string) string {
	return porter2.Stem(inflector.Singularize(strings.ToLower(strings.TrimSpace(w))))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// recency is the piecewise function pinned in spec §4.9: integer ages 0-6
// map to a fixed table, older papers decay geometrically at 0.7 per year
// past age 6.
func recency(publicationYear int, now time.Time) float64 {
	if publicationYear == 0 {
		return 0
	}
	age := now.Year() - publicationYear
	if age < 0 {
		age = 0
	}

	table := []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.4, 0.2}
	if age < len(table) {
		return table[age]
	}
	return 0.2 * math.Pow(0.7, float64(age-6))
}

// citationCount maps raw citation counts into [0,1] via a log10 curve that
// saturates at 1 around 9999 citations (log10(10000)/4 = 1).
func citationCount(citations int) float64 {
	if citations <= 0 {
		return 0
	}
	v := math.Log10(float64(citations)+1) / 4
	if v > 1 {
		v = 1
	}
	return v
}
