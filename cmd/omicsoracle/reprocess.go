package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

var (
	reprocessGEOID string
	reprocessStage string
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Force one stage to re-run for every paper in a GEO series",
	RunE:  runReprocess,
}

func init() {
	reprocessCmd.Flags().StringVar(&reprocessGEOID, "geo", "", "GEO series accession (required)")
	reprocessCmd.Flags().StringVar(&reprocessStage, "stage", "", "stage to reprocess: P1, P2, P3, or P4 (required)")
	reprocessCmd.MarkFlagRequired("geo")
	reprocessCmd.MarkFlagRequired("stage")
}

func runReprocess(cmd *cobra.Command, args []string) error {
	stage := model.Stage(strings.ToUpper(reprocessStage))
	if stage != model.StageP1 && stage != model.StageP2 && stage != model.StageP3 && stage != model.StageP4 {
		return exitErrorf(2, "reprocess: --stage must be one of P1, P2, P3, P4, got %q", reprocessStage)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := a.store.GetCompleteGEOData(ctx, reprocessGEOID)
	if err != nil {
		return exitErrorf(4, "reprocess %s: %w", reprocessGEOID, err)
	}

	attempted, succeeded, failed := 0, 0, 0

	if stage == model.StageP1 {
		var seeds []string
		for _, paper := range data.Papers {
			if paper.Identifier.PaperType == model.PaperTypeSeed {
				seeds = append(seeds, paper.Identifier.PMID)
			}
		}
		geo := model.GEOSeriesMetadata{GEOID: reprocessGEOID, PubmedIDs: seeds}
		results, err := a.coordinator.Discovery.Run(ctx, geo)
		if err != nil {
			return exitErrorf(4, "reprocess %s P1: %w", reprocessGEOID, err)
		}
		for _, r := range results {
			attempted++
			if r.OriginalPaper.PMID != "" {
				succeeded++
			} else {
				failed++
			}
		}
	} else {
		for _, paper := range data.Papers {
			pub := model.Publication{
				PMID:  paper.Identifier.PMID,
				DOI:   paper.Identifier.DOI,
				PMCID: paper.Identifier.PMCID,
				Title: paper.Identifier.Title,
			}
			attempted++
			var stageErr error
			switch stage {
			case model.StageP2:
				_, stageErr = a.coordinator.URLCollect.Run(ctx, reprocessGEOID, pub)
			case model.StageP3:
				_, _, stageErr = a.coordinator.Download.Run(ctx, reprocessGEOID, pub)
			case model.StageP4:
				_, stageErr = a.coordinator.Extract.Run(ctx, reprocessGEOID, pub.PMID)
			}
			if stageErr != nil {
				failed++
			} else {
				succeeded++
			}
		}
	}

	printSummary(string(stage), attempted, succeeded, failed)
	if failed > 0 {
		return exitErrorf(3, "reprocess %s %s: %d failure(s)", reprocessGEOID, stage, failed)
	}
	return nil
}
