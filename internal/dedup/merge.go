package dedup

import (
	"strings"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

// MergePublications combines two records already known to be the same
// paper: the richer one (more non-empty fields) wins field-for-field, then
// any orthogonal field still empty is filled in from the other (spec §4.3
// step 3: "Keep the record with the richest metadata; merge orthogonal
// fields").
func MergePublications(a, b model.Publication) model.Publication {
	primary, secondary := a, b
	if richness(b) > richness(a) {
		primary, secondary = b, a
	}

	if primary.PMID == "" {
		primary.PMID = secondary.PMID
	}
	if primary.DOI == "" {
		primary.DOI = secondary.DOI
	}
	if primary.PMCID == "" {
		primary.PMCID = secondary.PMCID
	}
	if primary.OpenAlexID == "" {
		primary.OpenAlexID = secondary.OpenAlexID
	}
	if primary.Title == "" {
		primary.Title = secondary.Title
	}
	if primary.Abstract == "" {
		primary.Abstract = secondary.Abstract
	}
	if primary.Journal == "" {
		primary.Journal = secondary.Journal
	}
	if primary.Year == 0 {
		primary.Year = secondary.Year
	}
	if primary.Citations == 0 {
		primary.Citations = secondary.Citations
	}
	if len(primary.Authors) == 0 {
		primary.Authors = secondary.Authors
	}
	if len(primary.Keywords) == 0 {
		primary.Keywords = secondary.Keywords
	}
	if len(primary.MeshTerms) == 0 {
		primary.MeshTerms = secondary.MeshTerms
	}
	return primary
}

// richness counts how many identity/descriptive fields are populated, used
// to pick which of two duplicate records anchors the merge.
func richness(p model.Publication) int {
	n := 0
	if p.PMID != "" {
		n++
	}
	if p.DOI != "" {
		n++
	}
	if p.PMCID != "" {
		n++
	}
	if p.OpenAlexID != "" {
		n++
	}
	if p.Title != "" {
		n++
	}
	if p.Abstract != "" {
		n++
	}
	if p.Journal != "" {
		n++
	}
	if p.Year != 0 {
		n++
	}
	if p.Citations != 0 {
		n++
	}
	n += len(p.Authors) + len(p.Keywords) + len(p.MeshTerms)
	return n
}

// DeduplicatePublications groups pubs by CanonicalKey and, within each
// group with no shared PMID/DOI key (i.e. title-keyed), additionally
// merges near-duplicate titles per SameTitleRecord before returning the
// final deduplicated, merged set. Groups are returned in the order their
// canonical key was first seen in the input.
func DeduplicatePublications(pubs []model.Publication) []model.Publication {
	byKey := make(map[string]model.Publication)
	var order []string

	for _, pub := range pubs {
		key := CanonicalKey(pub)
		if existing, ok := byKey[key]; ok {
			byKey[key] = MergePublications(existing, pub)
			continue
		}
		byKey[key] = pub
		order = append(order, key)
	}

	merged := make([]model.Publication, 0, len(order))
	used := make(map[string]bool)
	for _, key := range order {
		if used[key] {
			continue
		}
		result := byKey[key]
		used[key] = true

		if strings.HasPrefix(key, "title:") {
			for _, other := range order {
				if used[other] || !strings.HasPrefix(other, "title:") {
					continue
				}
				if ok, _ := SameTitleRecord(result, byKey[other]); ok {
					result = MergePublications(result, byKey[other])
					used[other] = true
				}
			}
		}
		merged = append(merged, result)
	}
	return merged
}
