package main

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/omicsoracle/omicsoracle/internal/cache"
	"github.com/omicsoracle/omicsoracle/internal/config"
	"github.com/omicsoracle/omicsoracle/internal/coordinator"
	"github.com/omicsoracle/omicsoracle/internal/discovery"
	"github.com/omicsoracle/omicsoracle/internal/download"
	"github.com/omicsoracle/omicsoracle/internal/extract"
	"github.com/omicsoracle/omicsoracle/internal/logging"
	"github.com/omicsoracle/omicsoracle/internal/netutil"
	"github.com/omicsoracle/omicsoracle/internal/retry"
	"github.com/omicsoracle/omicsoracle/internal/sources"
	"github.com/omicsoracle/omicsoracle/internal/store"
	"github.com/omicsoracle/omicsoracle/internal/urlcollect"
)

// app bundles every collaborator the cobra commands' RunE functions need, built once
// from config.Load() and torn down by Close. Nothing here is a package-level
// global — each cobra command receives *app explicitly.
type app struct {
	cfg          *config.Config
	log          *zap.SugaredLogger
	store        *store.Store
	discoveryCache *cache.DiscoveryCache
	parsedCache  *cache.ParsedContentCache
	coordinator  *coordinator.Coordinator
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &exitError{code: 2, err: fmt.Errorf("config: %w", err)}
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, &exitError{code: 2, err: fmt.Errorf("logging: %w", err)}
	}

	st, err := store.Open(cfg.StoreRoot, log)
	if err != nil {
		return nil, &exitError{code: 4, err: fmt.Errorf("store: %w", err)}
	}

	discoveryCache, err := cache.NewDiscoveryCache(
		filepath.Join(cfg.StoreRoot, "cache"),
		time.Duration(cfg.DiscoveryCacheTTLS)*time.Second,
		4096,
	)
	if err != nil {
		st.Close()
		return nil, &exitError{code: 4, err: fmt.Errorf("discovery cache: %w", err)}
	}

	parsedCache, err := cache.NewParsedContentCache(filepath.Join(cfg.StoreRoot, "cache", "parsed"))
	if err != nil {
		st.Close()
		discoveryCache.Close()
		return nil, &exitError{code: 4, err: fmt.Errorf("parsed cache: %w", err)}
	}

	httpClient := netutil.NewClient(netutil.Timeouts{
		Connect:       durationFromSeconds(cfg.HTTPTimeoutConnectS),
		Read:          durationFromSeconds(cfg.HTTPTimeoutReadS),
		PerURLOverall: 45 * time.Second,
	})
	limiter := netutil.NewHostLimiter(4, 3)

	policy := retry.Policy{
		MaxRetries: cfg.RetryMax,
		BaseDelay:  durationFromSeconds(cfg.RetryBaseDelayS),
		Multiplier: cfg.RetryMult,
		Jitter:     cfg.RetryJitter,
		MaxDelay:   30 * time.Second,
	}

	metadata := sources.NewNCBIClient(httpClient, limiter, cfg.NCBIEmail, cfg.NCBIAPIKey, policy)

	var citeClients []sources.CitationClient
	if cfg.SourceEnabled("ncbi") {
		citeClients = append(citeClients, metadata)
	}
	if cfg.SourceEnabled("openalex") {
		citeClients = append(citeClients, sources.NewOpenAlexClient(httpClient, limiter, policy))
	}
	if cfg.SourceEnabled("semanticscholar") {
		citeClients = append(citeClients, sources.NewSemanticScholarClient(httpClient, limiter, cfg.SemanticScholarKey, policy))
	}

	var urlClients []sources.URLClient
	if cfg.SourceEnabled("pmc") {
		urlClients = append(urlClients, sources.NewPMCClient())
	}
	if cfg.SourceEnabled("unpaywall") {
		urlClients = append(urlClients, sources.NewUnpaywallClient(httpClient, limiter, cfg.UnpaywallEmail, policy))
	}
	if cfg.SourceEnabled("crossref") {
		urlClients = append(urlClients, sources.NewCrossrefClient(httpClient, limiter, policy))
	}
	if cfg.SourceEnabled("core") {
		urlClients = append(urlClients, sources.NewCOREClient(httpClient, limiter, cfg.COREAPIKey, policy))
	}
	if cfg.SourceEnabled("europepmc") {
		urlClients = append(urlClients, sources.NewEuropePMCClient(httpClient, limiter, policy))
	}
	if cfg.SourceEnabled("biorxiv") || cfg.SourceEnabled("arxiv") {
		urlClients = append(urlClients, sources.NewPreprintClient(httpClient, limiter, policy))
	}

	discoverer := discovery.New(metadata, citeClients, st, log)
	discoverer.Cache = discoveryCache
	collector := urlcollect.New(urlClients, st, log)

	downloader := download.New(httpClient, limiter, st, log)
	downloader.MinPDFBytes = int64(cfg.PDFMinBytes)
	downloader.PerURLMaxRetries = cfg.PerURLMaxRetries
	downloader.RetryDelay = durationFromSeconds(cfg.PerURLRetryDelayS)

	extractor := extract.New(st, parsedCache, log)

	coord := coordinator.New(discoverer, collector, downloader, extractor, st, log)

	return &app{
		cfg:            cfg,
		log:            log,
		store:          st,
		discoveryCache: discoveryCache,
		parsedCache:    parsedCache,
		coordinator:    coord,
	}, nil
}

func (a *app) Close() {
	a.discoveryCache.Close()
	a.store.Close()
	_ = a.log.Sync()
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// exitError carries the exit code spec §6 assigns to each failure class:
// 2 configuration error, 3 partial success with per-paper failures, 4
// fatal I/O error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	return 4
}
