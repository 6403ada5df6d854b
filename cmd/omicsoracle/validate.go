package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/scoring"
)

var (
	validateGEOID    string
	validateTitle    string
	validateSummaryText string
	validateKeywords []string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Recompute artifact hashes and relevance scores for a GEO series",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateGEOID, "geo", "", "GEO series accession (required)")
	validateCmd.Flags().StringVar(&validateTitle, "title", "", "GEO series title, for content-similarity re-scoring")
	validateCmd.Flags().StringVar(&validateSummaryText, "summary", "", "GEO series summary, for content-similarity re-scoring")
	validateCmd.Flags().StringSliceVar(&validateKeywords, "keyword", nil, "GEO series keyword (repeatable)")
	validateCmd.MarkFlagRequired("geo")
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := a.store.GetCompleteGEOData(ctx, validateGEOID)
	if err != nil {
		return exitErrorf(4, "validate %s: %w", validateGEOID, err)
	}

	geo := model.GEOSeriesMetadata{
		GEOID:    validateGEOID,
		Title:    validateTitle,
		Summary:  validateSummaryText,
		Keywords: validateKeywords,
	}

	corrupt := 0
	rescored := 0
	for _, paper := range data.Papers {
		if paper.Artifact != nil {
			ok, err := verifyHash(paper.Artifact.PDFPath, paper.Artifact.SHA256)
			if err != nil {
				color.New(color.FgRed).Printf("%s: read failed: %v\n", paper.Identifier.PMID, err)
				corrupt++
				continue
			}
			if !ok {
				color.New(color.FgRed).Printf("%s: hash mismatch at %s\n", paper.Identifier.PMID, paper.Artifact.PDFPath)
				corrupt++
			}
		}

		pub := model.Publication{
			PMID:  paper.Identifier.PMID,
			DOI:   paper.Identifier.DOI,
			PMCID: paper.Identifier.PMCID,
			Title: paper.Identifier.Title,
		}
		score := scoring.Score(geo, pub, time.Now())
		if err := a.store.SaveScore(ctx, score); err != nil {
			return exitErrorf(4, "validate %s: save score for %s: %w", validateGEOID, paper.Identifier.PMID, err)
		}
		rescored++
	}

	color.New(color.FgGreen).Printf("validated %d papers: %d rescored, %d corrupt\n", len(data.Papers), rescored, corrupt)
	if corrupt > 0 {
		return exitErrorf(3, "validate %s: %d corrupt artifact(s)", validateGEOID, corrupt)
	}
	return nil
}

func verifyHash(path, wantHex string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == wantHex, nil
}
