// Package netutil provides the shared HTTP client and host-politeness
// primitives used by every source client (spec §5, §6).
package netutil

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Timeouts mirrors the spec's HTTP_TIMEOUT_CONNECT_S / HTTP_TIMEOUT_READ_S
// and the per-URL overall budget.
type Timeouts struct {
	Connect    time.Duration
	Read       time.Duration
	PerURLOverall time.Duration
}

// NewClient builds an *http.Client with the configured connect/read timeouts.
// Every client adapter shares one of these per process; a fresh transport
// per call would defeat connection reuse and politeness.
func NewClient(t Timeouts) *http.Client {
	dialer := &net.Dialer{Timeout: t.Connect}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: t.Read,
		MaxIdleConnsPerHost:   8,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   t.PerURLOverall,
	}
}

// HostLimiter bounds concurrency and request rate per host, shared across
// all source clients so that "ncbi.nlm.nih.gov" has one semaphore no matter
// how many clients hit it (spec §5: "Semaphores are shared by host name").
type HostLimiter struct {
	mu          sync.Mutex
	concurrency int
	ratePerSec  float64
	sems        map[string]*semaphore.Weighted
	limiters    map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter with the given per-host concurrency cap
// and requests-per-second rate.
func NewHostLimiter(concurrency int, ratePerSec float64) *HostLimiter {
	if concurrency <= 0 {
		concurrency = 4
	}
	if ratePerSec <= 0 {
		ratePerSec = 3
	}
	return &HostLimiter{
		concurrency: concurrency,
		ratePerSec:  ratePerSec,
		sems:        make(map[string]*semaphore.Weighted),
		limiters:    make(map[string]*rate.Limiter),
	}
}

func (h *HostLimiter) forHost(host string) (*semaphore.Weighted, *rate.Limiter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sem, ok := h.sems[host]
	if !ok {
		sem = semaphore.NewWeighted(int64(h.concurrency))
		h.sems[host] = sem
	}
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(h.ratePerSec), 1)
		h.limiters[host] = lim
	}
	return sem, lim
}

// Acquire blocks until both the host's concurrency slot and rate-limit
// token are available, then returns a release func. Callers must call
// release exactly once, on every exit path (success, failure, cancellation).
func (h *HostLimiter) Acquire(ctx context.Context, rawURL string) (release func(), err error) {
	host := hostOf(rawURL)
	sem, lim := h.forHost(host)

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := lim.Wait(ctx); err != nil {
		sem.Release(1)
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "default"
	}
	return u.Host
}
