// Package coordinator drives P1 through P4 for one GEO series, writing
// through the store after each stage and supporting resume and
// cancellation (spec §4.10).
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/omicsoracle/omicsoracle/internal/discovery"
	"github.com/omicsoracle/omicsoracle/internal/download"
	"github.com/omicsoracle/omicsoracle/internal/extract"
	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/store"
	"github.com/omicsoracle/omicsoracle/internal/urlcollect"

	"go.uber.org/zap"
)

// maxPapersInFlight bounds concurrent per-paper pipelines (P2→P3→P4), per
// spec §5's "~8 papers in flight" limit.
const maxPapersInFlight = 8

// StageSummary counts how many papers attempted and succeeded/failed a
// stage, the shape of the per-stage processing_log row spec §4.10 requires.
type StageSummary struct {
	Attempted int
	Succeeded int
	Failed    int
}

// RunSummary is the coordinator's return value: one run correlation ID and
// a StageSummary per pipeline stage.
type RunSummary struct {
	RunID string
	GEOID string
	P1    StageSummary
	P2    StageSummary
	P3    StageSummary
	P4    StageSummary
}

// Coordinator composes the four stage drivers, the store, and a logger.
type Coordinator struct {
	Discovery  *discovery.Discoverer
	URLCollect *urlcollect.Collector
	Download   *download.Downloader
	Extract    *extract.Extractor
	Store      *store.Store
	Log        *zap.SugaredLogger
}

func New(d *discovery.Discoverer, u *urlcollect.Collector, dl *download.Downloader, ex *extract.Extractor, st *store.Store, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{Discovery: d, URLCollect: u, Download: dl, Extract: ex, Store: st, Log: log}
}

// Run drives the full P1→P2→P3→P4 pipeline for a GEO series from scratch.
func (c *Coordinator) Run(ctx context.Context, geo model.GEOSeriesMetadata) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.New().String(), GEOID: geo.GEOID}
	c.logRun(geo.GEOID, summary.RunID, "run started")

	results, err := c.Discovery.Run(ctx, geo)
	if err != nil {
		return summary, err
	}
	summary.P1.Attempted = len(results)
	for _, r := range results {
		if r.OriginalPaper.PMID != "" {
			summary.P1.Succeeded++
		} else {
			summary.P1.Failed++
		}
	}
	c.logStageSummary(geo.GEOID, model.StageP1, summary.P1)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPapersInFlight)
	for _, pub := range collectUniquePapers(results) {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			c.runFromP2(gctx, geo.GEOID, pub, &summary, &mu)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logRun(geo.GEOID, summary.RunID, "cancelled")
		return summary, err
	}

	c.logStageSummary(geo.GEOID, model.StageP2, summary.P2)
	c.logStageSummary(geo.GEOID, model.StageP3, summary.P3)
	c.logStageSummary(geo.GEOID, model.StageP4, summary.P4)
	c.logRun(geo.GEOID, summary.RunID, "run finished")
	return summary, nil
}

// Resume scans the store for (pmid, missing stage) pairs and processes only
// those, picking up each paper at the stage it last left off (spec §4.10
// "--resume: scan the store for rows missing the next stage").
func (c *Coordinator) Resume(ctx context.Context, geoID string) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.New().String(), GEOID: geoID}
	c.logRun(geoID, summary.RunID, "resume started")

	missing, err := c.Store.QueryMissingStage(ctx, geoID)
	if err != nil {
		return summary, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPapersInFlight)
	for pmid, stage := range missing {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			ident, err := c.Store.GetIdentifier(gctx, geoID, pmid)
			if err != nil {
				return nil
			}
			pub := model.Publication{PMID: ident.PMID, DOI: ident.DOI, PMCID: ident.PMCID, Title: ident.Title}

			switch stage {
			case model.StageP2:
				c.runFromP2(gctx, geoID, pub, &summary, &mu)
			case model.StageP3:
				c.runFromP3(gctx, geoID, pub, &summary, &mu)
			case model.StageP4:
				c.runFromP4(gctx, geoID, pub, &summary, &mu)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logRun(geoID, summary.RunID, "cancelled")
		return summary, err
	}

	c.logStageSummary(geoID, model.StageP2, summary.P2)
	c.logStageSummary(geoID, model.StageP3, summary.P3)
	c.logStageSummary(geoID, model.StageP4, summary.P4)
	c.logRun(geoID, summary.RunID, "resume finished")
	return summary, nil
}

// runFromP2, runFromP3, and runFromP4 each do their own network/disk work
// unlocked, and only take mu to record the outcome — so papers running
// concurrently never serialize on anything but the summary counters.

func (c *Coordinator) runFromP2(ctx context.Context, geoID string, pub model.Publication, summary *RunSummary, mu *sync.Mutex) {
	urls, err := c.URLCollect.Run(ctx, geoID, pub)

	mu.Lock()
	summary.P2.Attempted++
	if err != nil {
		summary.P2.Failed++
	} else {
		summary.P2.Succeeded++
	}
	mu.Unlock()

	if err != nil || len(urls) == 0 {
		// A paper with zero URLs never enters P3 (spec §4.10); this is
		// not a P2 failure, it simply has nowhere further to go.
		return
	}
	c.runFromP3(ctx, geoID, pub, summary, mu)
}

func (c *Coordinator) runFromP3(ctx context.Context, geoID string, pub model.Publication, summary *RunSummary, mu *sync.Mutex) {
	_, ok, err := c.Download.Run(ctx, geoID, pub)

	mu.Lock()
	summary.P3.Attempted++
	if err != nil || !ok {
		summary.P3.Failed++
	} else {
		summary.P3.Succeeded++
	}
	mu.Unlock()

	if err != nil || !ok {
		return
	}
	c.runFromP4(ctx, geoID, pub, summary, mu)
}

func (c *Coordinator) runFromP4(ctx context.Context, geoID string, pub model.Publication, summary *RunSummary, mu *sync.Mutex) {
	_, err := c.Extract.Run(ctx, geoID, pub.PMID)

	mu.Lock()
	summary.P4.Attempted++
	if err != nil {
		summary.P4.Failed++
	} else {
		summary.P4.Succeeded++
	}
	mu.Unlock()
}

// collectUniquePapers flattens every discovery result's seed and citing
// papers into one deduplicated-by-PMID list, since the same citing paper
// can legitimately surface under more than one seed.
func collectUniquePapers(results []model.DiscoveryResult) []model.Publication {
	seen := make(map[string]bool)
	var out []model.Publication
	add := func(pub model.Publication) {
		if pub.PMID == "" || seen[pub.PMID] {
			return
		}
		seen[pub.PMID] = true
		out = append(out, pub)
	}
	for _, r := range results {
		add(r.OriginalPaper)
		for _, citing := range r.CitingPapers {
			add(citing)
		}
	}
	return out
}

func (c *Coordinator) logRun(geoID, runID, msg string) {
	if c.Log != nil {
		c.Log.Infow(msg, "geo_id", geoID, "run_id", runID)
	}
}

func (c *Coordinator) logStageSummary(geoID string, stage model.Stage, s StageSummary) {
	msg := fmt.Sprintf("%s: attempted=%d succeeded=%d failed=%d", stage, s.Attempted, s.Succeeded, s.Failed)
	if c.Log != nil {
		c.Log.Infow(msg, "geo_id", geoID, "stage", stage)
	}
	if c.Store != nil {
		_ = c.Store.Log(context.Background(), model.ProcessingLog{
			GEOID: geoID, Stage: stage, Level: model.LogInfo, Message: msg,
		})
	}
}
