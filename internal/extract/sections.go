package extract

import (
	"regexp"
	"strings"
)

// Section is one detected span of full text, with its byte offsets into
// the original string (spec §4.8 step 4: "Record each as a substring +
// offsets").
type Section struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// sectionOrder is the ranked heading set §4.8 names, in the order a paper
// conventionally presents them; it doubles as the position heuristic —
// a heading match earlier in this list is preferred when two candidate
// headings tie on position.
var sectionOrder = []string{
	"abstract", "introduction", "methods", "results", "discussion", "conclusion", "references",
}

// headingPatterns recognizes each section's heading on its own line,
// tolerating numbering ("1. Introduction"), case, and the methods/materials
// and discussion/conclusion synonyms §4.8 calls out.
var headingPatterns = map[string]*regexp.Regexp{
	"abstract":     regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?abstract\s*$`),
	"introduction": regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?introduction\s*$`),
	"methods":      regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:methods|materials and methods|materials\s*&\s*methods)\s*$`),
	"results":      regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?results\s*$`),
	"discussion":   regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?discussion\s*$`),
	"conclusion":   regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:conclusion|conclusions)\s*$`),
	"references":   regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:references|bibliography)\s*$`),
}

type headingMatch struct {
	name  string
	start int
	end   int // end of the heading line, where the section body begins
}

// detectSections locates each heading's offset and slices the text between
// consecutive headings (§4.8 step 4). Sections whose heading isn't found
// are simply absent from the result, which the caller treats as "".
func detectSections(text string) map[string]Section {
	var matches []headingMatch
	for _, name := range sectionOrder {
		pattern := headingPatterns[name]
		loc := pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		matches = append(matches, headingMatch{name: name, start: loc[0], end: loc[1]})
	}
	if len(matches) == 0 {
		return nil
	}

	// order matches by position in the document, not declaration order, so
	// a paper that (unusually) puts methods before abstract still slices
	// correctly.
	sortMatchesByStart(matches)

	sections := make(map[string]Section, len(matches))
	for i, m := range matches {
		bodyStart := skipLeadingNewline(text, m.end)
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1].start
		}
		sections[m.name] = Section{
			Name:  m.name,
			Text:  strings.TrimSpace(text[bodyStart:bodyEnd]),
			Start: bodyStart,
			End:   bodyEnd,
		}
	}
	return sections
}

func sortMatchesByStart(matches []headingMatch) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].start < matches[j-1].start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

func skipLeadingNewline(text string, offset int) int {
	for offset < len(text) && (text[offset] == '\n' || text[offset] == '\r') {
		offset++
	}
	return offset
}
