package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/omicsoracle/omicsoracle/internal/coordinator"
	"github.com/omicsoracle/omicsoracle/internal/model"
)

var (
	runGEOID    string
	runPMIDs    []string
	runTitle    string
	runSummaryText string
	runKeywords []string
	runResume   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the P1-P4 pipeline for one GEO series",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runGEOID, "geo", "", "GEO series accession (required)")
	runCmd.Flags().StringSliceVar(&runPMIDs, "pmid", nil, "seed PubMed ID (repeatable)")
	runCmd.Flags().StringVar(&runTitle, "title", "", "GEO series title, used for content-similarity scoring")
	runCmd.Flags().StringVar(&runSummaryText, "summary", "", "GEO series summary, used for content-similarity scoring")
	runCmd.Flags().StringSliceVar(&runKeywords, "keyword", nil, "GEO series keyword (repeatable)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume a prior run instead of starting from P1")
	runCmd.MarkFlagRequired("geo")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var result coordinator.RunSummary
	if runResume {
		result, err = a.coordinator.Resume(ctx, runGEOID)
		if err != nil {
			return exitErrorf(4, "resume %s: %w", runGEOID, err)
		}
	} else {
		if len(runPMIDs) == 0 {
			return exitErrorf(2, "run: at least one --pmid is required")
		}
		geo := model.GEOSeriesMetadata{
			GEOID:     runGEOID,
			PubmedIDs: runPMIDs,
			Title:     runTitle,
			Summary:   runSummaryText,
			Keywords:  runKeywords,
		}
		result, err = a.coordinator.Run(ctx, geo)
		if err != nil {
			return exitErrorf(4, "run %s: %w", runGEOID, err)
		}
	}

	printSummary("P1", result.P1.Attempted, result.P1.Succeeded, result.P1.Failed)
	printSummary("P2", result.P2.Attempted, result.P2.Succeeded, result.P2.Failed)
	printSummary("P3", result.P3.Attempted, result.P3.Succeeded, result.P3.Failed)
	printSummary("P4", result.P4.Attempted, result.P4.Succeeded, result.P4.Failed)

	if hasAnyFailure(result) {
		return exitErrorf(3, "run %s: completed with per-paper failures", runGEOID)
	}
	return nil
}

func hasAnyFailure(s coordinator.RunSummary) bool {
	return s.P1.Failed > 0 || s.P2.Failed > 0 || s.P3.Failed > 0 || s.P4.Failed > 0
}
