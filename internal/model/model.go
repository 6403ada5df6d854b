// Package model defines the entities shared across every pipeline stage.
package model

import "time"

// PaperType classifies how a publication entered the universal_identifier table.
type PaperType string

const (
	PaperTypeSeed    PaperType = "seed"
	PaperTypeCiting  PaperType = "citing"
	PaperTypeRelated PaperType = "related"
)

// URLType is the closed classification of a candidate article URL.
type URLType string

const (
	URLTypePDFDirect    URLType = "pdf_direct"
	URLTypeLandingPage  URLType = "landing_page"
	URLTypeHTMLFulltext URLType = "html_fulltext"
	URLTypeDOIResolver  URLType = "doi_resolver"
	URLTypeUnknown      URLType = "unknown"
)

// urlTypeRank orders url_type values for the P2 sort (priority asc, url_type rank asc).
var urlTypeRank = map[URLType]int{
	URLTypePDFDirect:    0,
	URLTypeHTMLFulltext: 1,
	URLTypeLandingPage:  2,
	URLTypeDOIResolver:  3,
	URLTypeUnknown:      4,
}

// Rank returns the sort rank of a url_type, defaulting to the unknown rank
// for any value outside the closed set.
func (t URLType) Rank() int {
	if r, ok := urlTypeRank[t]; ok {
		return r
	}
	return urlTypeRank[URLTypeUnknown]
}

// ContentType distinguishes a downloaded artifact's format.
type ContentType string

const (
	ContentTypePDF  ContentType = "pdf"
	ContentTypeHTML ContentType = "html"
)

// Stage identifies a pipeline phase for logging and resume scans.
type Stage string

const (
	StageP1 Stage = "P1"
	StageP2 Stage = "P2"
	StageP3 Stage = "P3"
	StageP4 Stage = "P4"
)

// LogLevel is the severity of a processing_log row.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Grade is the letter grade summarizing extraction completeness.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// UniversalIdentifier is the (geo_id, pmid) row at the center of the schema.
type UniversalIdentifier struct {
	GEOID            string
	PMID             string
	PMCID            string
	DOI              string
	Title             string
	FirstDiscoveredAt time.Time
	LastUpdatedAt     time.Time
	PaperType         PaperType
}

// URLDiscovery is one candidate artifact location found by P2.
type URLDiscovery struct {
	GEOID        string
	PMID         string
	Source       string
	URL          string
	URLType      URLType
	Priority     int
	Evidence     string
	DiscoveredAt time.Time
}

// PDFArtifact is the single downloaded-and-validated artifact for a paper.
type PDFArtifact struct {
	GEOID         string
	PMID          string
	PDFPath       string
	SHA256        string
	SizeBytes     int64
	SourceUsed    string
	DownloadedAt  time.Time
	ContentType   ContentType
}

// ContentExtraction is the normalized text pulled from an artifact.
type ContentExtraction struct {
	GEOID             string
	PMID              string
	FullText          string
	Abstract          string
	Methods           string
	Results           string
	Discussion        string
	SectionsJSON      string
	TablesJSON        string
	ReferencesJSON    string
	WordCount         int
	ExtractionMethod  string
	ExtractionQuality float64
	ExtractionGrade   Grade
	ExtractedAt       time.Time
}

// ProcessingLog is one append-only audit row.
type ProcessingLog struct {
	ID        int64
	GEOID     string
	PMID      string
	Stage     Stage
	Source    string
	Level     LogLevel
	Message   string
	Attempt   int
	Timestamp time.Time
}

// ScoreComponents are the inputs to RelevanceScore.Total (§4.9).
type ScoreComponents struct {
	ContentSim       float64
	KeywordMatch     float64
	Recency          float64
	CitationCount    float64
}

// RelevanceScore is the weighted sum persisted per (geo_id, pmid).
type RelevanceScore struct {
	GEOID          string
	PMID           string
	Total          float64
	Components     ScoreComponents
	WeightsVersion string
	ComputedAt     time.Time
}

// GEOSeriesMetadata is the P1 input: a GEO series and its seed publications.
type GEOSeriesMetadata struct {
	GEOID     string
	PubmedIDs []string
	Title     string
	Summary   string
	Keywords  []string
}

// Publication is a publication record as produced by source clients and
// consumed by P1/P2. Optional fields are empty strings/zero when unknown.
type Publication struct {
	PMID        string
	DOI         string
	PMCID       string
	OpenAlexID  string
	Title       string
	Abstract    string
	Journal     string
	Year        int
	Citations   int
	Authors     []string
	Keywords    []string
	MeshTerms   []string
}

// DiscoveryResult is P1's output for one seed publication (§4.3).
type DiscoveryResult struct {
	OriginalPaper Publication
	CitingPapers  []Publication
	SourcesUsed   []string
	CacheStatus   string
}

// CompleteGEOData is the materialized view returned by get_complete_geo_data.
type CompleteGEOData struct {
	GEOID   string
	Papers  []PaperView
}

// PaperView joins one universal_identifier row with everything that
// references it.
type PaperView struct {
	Identifier UniversalIdentifier
	URLs       []URLDiscovery
	Artifact   *PDFArtifact
	Extraction *ContentExtraction
	Score      *RelevanceScore
}
