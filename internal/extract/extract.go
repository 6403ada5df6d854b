// Package extract implements P4, Content Extraction (spec §4.8): sniff an
// artifact's format, pull out plain text, detect sections, score quality,
// and persist.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/omicsoracle/omicsoracle/internal/cache"
	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/store"

	"go.uber.org/zap"
)

// Extractor composes the store, the parsed-content cache, and a logger.
type Extractor struct {
	Store *store.Store
	Cache *cache.ParsedContentCache
	Log   *zap.SugaredLogger
}

func New(st *store.Store, parsedCache *cache.ParsedContentCache, log *zap.SugaredLogger) *Extractor {
	return &Extractor{Store: st, Cache: parsedCache, Log: log}
}

// cacheEntry is what ParsedContentCache stores: everything SaveExtraction
// needs to skip re-parsing identical bytes (spec §4.7 #2).
type cacheEntry struct {
	FullText         string
	SectionsJSON     string
	ExtractionMethod string
	ExtractionQuality float64
	ExtractionGrade  string
}

// Run extracts content from the artifact already downloaded for
// (geo_id, pmid) and persists a content_extraction row (spec §4.8).
func (e *Extractor) Run(ctx context.Context, geoID, pmid string) (model.ContentExtraction, error) {
	artifact, err := e.Store.GetArtifact(ctx, geoID, pmid)
	if err != nil {
		return model.ContentExtraction{}, err
	}

	if e.Cache != nil {
		if raw, ok, cerr := e.Cache.Get(artifact.SHA256); cerr == nil && ok {
			var entry cacheEntry
			if err := json.Unmarshal(raw, &entry); err == nil {
				extraction := extractionFromCacheEntry(geoID, pmid, entry)
				if err := e.Store.SaveExtraction(ctx, extraction); err != nil {
					return model.ContentExtraction{}, err
				}
				return extraction, nil
			}
		}
	}

	data, err := os.ReadFile(artifact.PDFPath)
	if err != nil {
		e.logError(geoID, pmid, "read artifact: "+err.Error())
		return model.ContentExtraction{}, err
	}

	var fullText, method string
	if sniffHTML(data) {
		fullText, err = extractHTML(data)
		method = "html"
	} else {
		fullText, err = extractPDF(data)
		method = "pdf"
	}
	if err != nil {
		e.logError(geoID, pmid, "extraction failed: "+err.Error())
		return model.ContentExtraction{}, err
	}

	sections := detectSections(fullText)
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		return model.ContentExtraction{}, err
	}

	quality, grade := scoreQuality(fullText, sections)

	extraction := model.ContentExtraction{
		GEOID:             geoID,
		PMID:              pmid,
		FullText:          fullText,
		Abstract:          sectionText(sections, "abstract"),
		Methods:           sectionText(sections, "methods"),
		Results:           sectionText(sections, "results"),
		Discussion:        sectionText(sections, "discussion"),
		SectionsJSON:      string(sectionsJSON),
		ExtractionMethod:  method,
		ExtractionQuality: quality,
		ExtractionGrade:   grade,
	}

	if err := e.Store.SaveExtraction(ctx, extraction); err != nil {
		return model.ContentExtraction{}, err
	}

	if e.Cache != nil {
		entry := cacheEntry{
			FullText: fullText, SectionsJSON: string(sectionsJSON),
			ExtractionMethod: method, ExtractionQuality: quality, ExtractionGrade: string(grade),
		}
		if blob, merr := json.Marshal(entry); merr == nil {
			_ = e.Cache.Set(artifact.SHA256, blob)
		}
	}

	return extraction, nil
}

func extractionFromCacheEntry(geoID, pmid string, entry cacheEntry) model.ContentExtraction {
	var sections map[string]Section
	_ = json.Unmarshal([]byte(entry.SectionsJSON), &sections)
	return model.ContentExtraction{
		GEOID:             geoID,
		PMID:              pmid,
		FullText:          entry.FullText,
		Abstract:          sectionText(sections, "abstract"),
		Methods:           sectionText(sections, "methods"),
		Results:           sectionText(sections, "results"),
		Discussion:        sectionText(sections, "discussion"),
		SectionsJSON:      entry.SectionsJSON,
		ExtractionMethod:  entry.ExtractionMethod,
		ExtractionQuality: entry.ExtractionQuality,
		ExtractionGrade:   model.Grade(entry.ExtractionGrade),
	}
}

func sectionText(sections map[string]Section, name string) string {
	if s, ok := sections[name]; ok {
		return s.Text
	}
	return ""
}

// sniffHTML implements §4.8 step 1: sniff the first 100 bytes for
// <!DOCTYPE or <html.
func sniffHTML(data []byte) bool {
	head := data
	if len(head) > 100 {
		head = head[:100]
	}
	lower := bytes.ToLower(head)
	return bytes.Contains(lower, []byte("<!doctype")) || bytes.Contains(lower, []byte("<html"))
}

// extractPDF concatenates page text page-by-page (§4.8 step 2).
func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "", errors.New("no extractable text in pdf")
	}
	return sb.String(), nil
}

// extractHTML strips non-content nodes and joins visible text blocks with
// double newlines (§4.8 step 3).
func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, nav, header, footer, noscript").Remove()

	var blocks []string
	doc.Find("p, h1, h2, h3, h4, li, td, blockquote").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		text := strings.TrimSpace(doc.Find("body").Text())
		if text == "" {
			return "", errors.New("no visible text in html")
		}
		return text, nil
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (e *Extractor) logError(geoID, pmid, msg string) {
	if e.Log != nil {
		e.Log.Errorw(msg, "stage", "P4", "geo_id", geoID, "pmid", pmid)
	}
	if e.Store != nil {
		_ = e.Store.Log(context.Background(), model.ProcessingLog{
			GEOID: geoID, PMID: pmid, Stage: model.StageP4, Level: model.LogError, Message: msg,
		})
	}
}
