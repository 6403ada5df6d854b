// Package discovery implements P1, Citation Discovery (spec §4.3): resolve
// each seed, fan out to citation clients, dedup, score, and persist.
package discovery

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omicsoracle/omicsoracle/internal/cache"
	"github.com/omicsoracle/omicsoracle/internal/dedup"
	"github.com/omicsoracle/omicsoracle/internal/model"
	"github.com/omicsoracle/omicsoracle/internal/scoring"
	"github.com/omicsoracle/omicsoracle/internal/sources"
	"github.com/omicsoracle/omicsoracle/internal/store"

	"go.uber.org/zap"
)

// metadataCacheSource is the (source, canonical_id) namespace P1's seed
// resolve lookups are cached under (spec §4.7: "Keyed on (source,
// canonical_id)"). Citation clients are cached under their own Name().
const metadataCacheSource = "metadata"

// Discoverer composes a metadata resolver, the enabled citation clients, the
// store, and a logger — all constructed collaborators, none a package-level
// singleton (Design Notes: "from globals to injected collaborators").
type Discoverer struct {
	Metadata        sources.MetadataClient
	CitationClients []sources.CitationClient
	Store           *store.Store
	Log             *zap.SugaredLogger

	// Cache is the P1 discovery cache (spec §4.7). Nil disables caching —
	// every lookup is a miss and every call reaches the network, which is
	// also this field's zero-value behavior for callers that never set it.
	Cache *cache.DiscoveryCache

	// Now is overridable in tests; production callers always see real time.
	Now func() time.Time
}

func New(metadata sources.MetadataClient, citationClients []sources.CitationClient, st *store.Store, log *zap.SugaredLogger) *Discoverer {
	return &Discoverer{Metadata: metadata, CitationClients: citationClients, Store: st, Log: log, Now: time.Now}
}

// Run executes P1 for every seed PMID in geo, tolerating per-seed and
// per-source failures without aborting the whole run (spec §4.3 Failure
// handling).
func (d *Discoverer) Run(ctx context.Context, geo model.GEOSeriesMetadata) ([]model.DiscoveryResult, error) {
	results := make([]model.DiscoveryResult, 0, len(geo.PubmedIDs))
	for _, pmid := range geo.PubmedIDs {
		result := d.runSeed(ctx, geo, pmid)
		results = append(results, result)
	}
	return results, nil
}

func (d *Discoverer) runSeed(ctx context.Context, geo model.GEOSeriesMetadata, pmid string) model.DiscoveryResult {
	seed, seedHit, err := d.resolveSeed(ctx, pmid)
	if err != nil {
		d.logError(ctx, geo.GEOID, pmid, "resolve seed: "+err.Error())
		seed = model.Publication{PMID: pmid}
		d.persistSeed(ctx, geo.GEOID, seed)
		return model.DiscoveryResult{OriginalPaper: seed, CacheStatus: "miss"}
	}
	if seed.PMID == "" {
		seed.PMID = pmid
	}
	d.persistSeed(ctx, geo.GEOID, seed)

	// Step 1: without a DOI/OpenAlex ID, citation queries cannot run; this
	// is not an error (spec §4.3 edge case).
	if seed.DOI == "" && seed.OpenAlexID == "" {
		return model.DiscoveryResult{OriginalPaper: seed, CacheStatus: cacheStatus(1, boolToInt(seedHit))}
	}

	citing, sourcesUsed, hits, total := d.fanOutCiting(ctx, seed)
	deduped := dedup.DeduplicatePublications(citing)

	now := d.Now()
	scores := make([]model.RelevanceScore, len(deduped))
	for i, pub := range deduped {
		scores[i] = scoring.Score(geo, pub, now)
		d.persistCiting(ctx, geo.GEOID, pub, scores[i])
	}

	order := make([]int, len(deduped))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]].Total > scores[order[j]].Total
	})
	sorted := make([]model.Publication, len(deduped))
	for i, idx := range order {
		sorted[i] = deduped[idx]
	}
	deduped = sorted

	return model.DiscoveryResult{
		OriginalPaper: seed,
		CitingPapers:  deduped,
		SourcesUsed:   sourcesUsed,
		CacheStatus:   cacheStatus(total+1, hits+boolToInt(seedHit)),
	}
}

// resolveSeed checks the discovery cache before calling the metadata client
// (spec §4.7: "cache hit must short-circuit network calls entirely"),
// populating the cache on every miss.
func (d *Discoverer) resolveSeed(ctx context.Context, pmid string) (model.Publication, bool, error) {
	if d.Cache != nil {
		if raw, ok, err := d.Cache.Get(ctx, metadataCacheSource, pmid); err == nil && ok {
			var pub model.Publication
			if err := json.Unmarshal(raw, &pub); err == nil {
				return pub, true, nil
			}
		}
	}

	pub, err := d.Metadata.Resolve(ctx, pmid)
	if err != nil {
		return model.Publication{}, false, err
	}
	if d.Cache != nil {
		if raw, err := json.Marshal(pub); err == nil {
			_ = d.Cache.Set(ctx, metadataCacheSource, pmid, raw)
		}
	}
	return pub, false, nil
}

// citingOutcome is one citation client's fan-out result, including whether
// it was served from the discovery cache.
type citingOutcome struct {
	source string
	pubs   []model.Publication
	hit    bool
	err    error
}

// fanOutCiting queries every enabled citation client in parallel, checking
// the discovery cache per client before reaching the network. A failing
// client is logged and skipped; at least one success anywhere produces a
// non-empty result (spec §4.3 Failure handling / §4.6 Fallback chain).
func (d *Discoverer) fanOutCiting(ctx context.Context, seed model.Publication) (pubs []model.Publication, sourcesUsed []string, hits, total int) {
	outcomes := make([]citingOutcome, len(d.CitationClients))
	canonicalID := dedup.CanonicalKey(seed)

	g, gctx := errgroup.WithContext(ctx)
	for i, client := range d.CitationClients {
		i, client := i, client
		g.Go(func() error {
			outcomes[i] = d.citingWithCache(gctx, client, canonicalID, seed)
			return nil // never abort siblings; errors are recorded, not propagated
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		total++
		if o.hit {
			hits++
		}
		if o.err != nil {
			d.logWarn(ctx, seed.PMID, "citation client "+o.source+" failed: "+o.err.Error())
			continue
		}
		if len(o.pubs) == 0 {
			continue
		}
		sourcesUsed = append(sourcesUsed, o.source)
		pubs = append(pubs, o.pubs...)
	}
	return pubs, sourcesUsed, hits, total
}

// citingWithCache checks the discovery cache for client's citing-papers
// lookup before falling through to the network, populating the cache on
// miss (spec §4.7: "cache hit must short-circuit network calls entirely").
func (d *Discoverer) citingWithCache(ctx context.Context, client sources.CitationClient, canonicalID string, seed model.Publication) citingOutcome {
	if d.Cache != nil {
		if raw, ok, err := d.Cache.Get(ctx, client.Name(), canonicalID); err == nil && ok {
			var pubs []model.Publication
			if err := json.Unmarshal(raw, &pubs); err == nil {
				return citingOutcome{source: client.Name(), pubs: pubs, hit: true}
			}
		}
	}

	pubs, err := client.Citing(ctx, seed)
	if err == nil && d.Cache != nil {
		if raw, merr := json.Marshal(pubs); merr == nil {
			_ = d.Cache.Set(ctx, client.Name(), canonicalID, raw)
		}
	}
	return citingOutcome{source: client.Name(), pubs: pubs, err: err}
}

// cacheStatus summarizes a discovery result's cache effectiveness: "hit"
// when every lookup that ran was served from cache, "miss" when none were,
// "partial" otherwise.
func cacheStatus(total, hits int) string {
	switch {
	case total == 0:
		return "miss"
	case hits == total:
		return "hit"
	case hits == 0:
		return "miss"
	default:
		return "partial"
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (d *Discoverer) persistSeed(ctx context.Context, geoID string, pub model.Publication) {
	if geoID == "" || pub.PMID == "" {
		return
	}
	err := d.Store.UpsertIdentifier(ctx, model.UniversalIdentifier{
		GEOID: geoID, PMID: pub.PMID, PMCID: pub.PMCID, DOI: pub.DOI, Title: pub.Title,
		PaperType: model.PaperTypeSeed,
	})
	if err != nil {
		d.logError(ctx, geoID, pub.PMID, "persist seed: "+err.Error())
	}
}

func (d *Discoverer) persistCiting(ctx context.Context, geoID string, pub model.Publication, score model.RelevanceScore) {
	if geoID == "" || pub.PMID == "" {
		return
	}
	if err := d.Store.UpsertIdentifier(ctx, model.UniversalIdentifier{
		GEOID: geoID, PMID: pub.PMID, PMCID: pub.PMCID, DOI: pub.DOI, Title: pub.Title,
		PaperType: model.PaperTypeCiting,
	}); err != nil {
		d.logError(ctx, geoID, pub.PMID, "persist citing: "+err.Error())
		return
	}
	score.GEOID = geoID
	score.PMID = pub.PMID
	if err := d.Store.SaveScore(ctx, score); err != nil {
		d.logError(ctx, geoID, pub.PMID, "save score: "+err.Error())
	}
}

func (d *Discoverer) logWarn(ctx context.Context, pmid, msg string) {
	if d.Log != nil {
		d.Log.Warnw(msg, "stage", "P1", "pmid", pmid)
	}
}

func (d *Discoverer) logError(ctx context.Context, geoID, pmid, msg string) {
	if d.Log != nil {
		d.Log.Errorw(msg, "stage", "P1", "geo_id", geoID, "pmid", pmid)
	}
	if d.Store != nil {
		_ = d.Store.Log(ctx, model.ProcessingLog{
			GEOID: geoID, PMID: pmid, Stage: model.StageP1, Level: model.LogError, Message: msg,
		})
	}
}
