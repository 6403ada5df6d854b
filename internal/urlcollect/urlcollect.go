// Package urlcollect implements P2, URL Collection (spec §4.4): fan out to
// every enabled URL client in parallel, classify and sort the candidates,
// and persist them — without verifying accessibility (P3's job).
package urlcollect

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/sources"
	"github.com/omicsoracle/omicsoracle/internal/store"

	"go.uber.org/zap"
)

// Collector composes the enabled URL clients, the store, and a logger.
type Collector struct {
	Clients []sources.URLClient
	Store   *store.Store
	Log     *zap.SugaredLogger
}

func New(clients []sources.URLClient, st *store.Store, log *zap.SugaredLogger) *Collector {
	return &Collector{Clients: clients, Store: st, Log: log}
}

// Run fans out to every client for one publication, classifies and sorts
// the merged candidate list, persists it, and returns it (spec §4.4).
func (c *Collector) Run(ctx context.Context, geoID string, pub model.Publication) ([]model.URLDiscovery, error) {
	type outcome struct {
		source string
		urls   []sources.URLCandidate
		err    error
	}
	outcomes := make([]outcome, len(c.Clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, client := range c.Clients {
		i, client := i, client
		g.Go(func() error {
			urls, err := client.Candidates(gctx, pub)
			outcomes[i] = outcome{source: client.Name(), urls: urls, err: err}
			return nil // a failing source yields to the others (§4.4 Policy)
		})
	}
	_ = g.Wait()

	var discoveries []model.URLDiscovery
	for _, o := range outcomes {
		if o.err != nil {
			c.logWarn(geoID, pub.PMID, "url client "+o.source+" failed: "+o.err.Error())
			continue
		}
		if len(o.urls) == 0 {
			c.logInfo(geoID, pub.PMID, "url client "+o.source+" returned no URLs")
			continue
		}
		for _, candidate := range o.urls {
			urlType := candidate.URLType
			if urlType == "" {
				urlType = sources.ClassifyURL(candidate.URL)
			}
			discoveries = append(discoveries, model.URLDiscovery{
				GEOID:    geoID,
				PMID:     pub.PMID,
				Source:   o.source,
				URL:      candidate.URL,
				URLType:  urlType,
				Priority: candidate.Priority,
				Evidence: candidate.Evidence,
			})
		}
	}

	sortByPriorityThenRank(discoveries)

	for _, d := range discoveries {
		if err := c.Store.AddURL(ctx, d); err != nil {
			c.logWarn(geoID, pub.PMID, "persist url: "+err.Error())
		}
	}

	if len(discoveries) == 0 {
		c.logInfo(geoID, pub.PMID, "no URLs")
	}

	return discoveries, nil
}

// sortByPriorityThenRank implements §4.4 step 3's deterministic order:
// priority ascending, then url_type rank ascending.
func sortByPriorityThenRank(discoveries []model.URLDiscovery) {
	sort.SliceStable(discoveries, func(i, j int) bool {
		if discoveries[i].Priority != discoveries[j].Priority {
			return discoveries[i].Priority < discoveries[j].Priority
		}
		return discoveries[i].URLType.Rank() < discoveries[j].URLType.Rank()
	})
}

func (c *Collector) logInfo(geoID, pmid, msg string) {
	if c.Log != nil {
		c.Log.Infow(msg, "stage", "P2", "geo_id", geoID, "pmid", pmid)
	}
	if c.Store != nil {
		_ = c.Store.Log(context.Background(), model.ProcessingLog{
			GEOID: geoID, PMID: pmid, Stage: model.StageP2, Level: model.LogInfo, Message: msg,
		})
	}
}

func (c *Collector) logWarn(geoID, pmid, msg string) {
	if c.Log != nil {
		c.Log.Warnw(msg, "stage", "P2", "geo_id", geoID, "pmid", pmid)
	}
	if c.Store != nil {
		_ = c.Store.Log(context.Background(), model.ProcessingLog{
			GEOID: geoID, PMID: pmid, Stage: model.StageP2, Level: model.LogWarn, Message: msg,
		})
	}
}
