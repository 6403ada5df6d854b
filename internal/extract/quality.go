package extract

import (
	"regexp"
	"strings"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// Grade thresholds pinned per DESIGN.md's Open Question decision: the
// quality score is deliberately coarse, so a handful of fixed cut points
// stands in for a learned calibration.
const (
	thresholdA = 0.85
	thresholdB = 0.70
	thresholdC = 0.55
	thresholdD = 0.35
)

// ligatureArtifact matches the most common PDF-extraction ligature garbling
// ("ﬁ"/"ﬂ" rendered as control characters, or runs of the Unicode
// replacement character) that a clean extraction should never contain.
var ligatureArtifact = regexp.MustCompile(`\x{FFFD}{2,}|[\x00-\x08\x0B\x0C\x0E-\x1F]`)

// scoreQuality computes §4.8 step 5's [0,1] score from non-empty section
// count, text length, reference presence, and absence of extraction
// artifacts, then maps it to a letter grade.
func scoreQuality(text string, sections map[string]Section) (float64, model.Grade) {
	nonEmpty := 0
	hasReferences := false
	for name, s := range sections {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		nonEmpty++
		if name == "references" {
			hasReferences = true
		}
	}

	sectionScore := float64(nonEmpty) / float64(len(sectionOrder))

	lengthScore := lengthComponent(len(text))

	referenceScore := 0.0
	if hasReferences {
		referenceScore = 1.0
	}

	cleanlinessScore := 1.0
	if ligatureArtifact.MatchString(text) {
		cleanlinessScore = 0.0
	}

	quality := 0.35*sectionScore + 0.30*lengthScore + 0.15*referenceScore + 0.20*cleanlinessScore
	return quality, gradeFor(quality)
}

// lengthComponent saturates at 1.0 around 3000 characters — long enough to
// hold a real abstract plus a couple of sections, short enough that a
// single full-length paper still maxes it out.
func lengthComponent(chars int) float64 {
	const saturatesAt = 3000.0
	v := float64(chars) / saturatesAt
	if v > 1 {
		v = 1
	}
	return v
}

func gradeFor(quality float64) model.Grade {
	switch {
	case quality >= thresholdA:
		return model.GradeA
	case quality >= thresholdB:
		return model.GradeB
	case quality >= thresholdC:
		return model.GradeC
	case quality >= thresholdD:
		return model.GradeD
	default:
		return model.GradeF
	}
}
