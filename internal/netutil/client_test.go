package netutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClientAppliesTimeouts(t *testing.T) {
	c := NewClient(Timeouts{Connect: 5 * time.Second, Read: 30 * time.Second, PerURLOverall: 45 * time.Second})
	if c.Timeout != 45*time.Second {
		t.Fatalf("got overall timeout %v, want 45s", c.Timeout)
	}
}

func TestHostLimiterReusesSemaphorePerHost(t *testing.T) {
	h := NewHostLimiter(4, 1000)
	sem1, _ := h.forHost("ncbi.nlm.nih.gov")
	sem2, _ := h.forHost("ncbi.nlm.nih.gov")
	if sem1 != sem2 {
		t.Fatal("expected the same semaphore instance for the same host")
	}
	sem3, _ := h.forHost("europepmc.org")
	if sem1 == sem3 {
		t.Fatal("expected distinct semaphores for distinct hosts")
	}
}

func TestHostLimiterBoundsConcurrency(t *testing.T) {
	h := NewHostLimiter(2, 1000)
	ctx := context.Background()

	rel1, err := h.Acquire(ctx, "https://example.org/a")
	if err != nil {
		t.Fatal(err)
	}
	rel2, err := h.Acquire(ctx, "https://example.org/b")
	if err != nil {
		t.Fatal(err)
	}

	var acquired int32
	done := make(chan struct{})
	go func() {
		rel3, err := h.Acquire(ctx, "https://example.org/c")
		if err == nil {
			atomic.StoreInt32(&acquired, 1)
			rel3()
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("third acquire should not complete while both slots are held")
	case <-time.After(100 * time.Millisecond):
	}

	rel1()
	<-done
	if atomic.LoadInt32(&acquired) != 1 {
		t.Fatal("third acquire should succeed once a slot is released")
	}
	rel2()
}

func TestHostLimiterDefaultsInvalidInputs(t *testing.T) {
	h := NewHostLimiter(0, 0)
	if h.concurrency != 4 || h.ratePerSec != 3 {
		t.Fatalf("got concurrency=%d rate=%v, want 4/3 defaults", h.concurrency, h.ratePerSec)
	}
}

func TestHostLimiterAcquireRespectsCancellation(t *testing.T) {
	h := NewHostLimiter(1, 1000)
	ctx := context.Background()
	release, err := h.Acquire(ctx, "https://example.org/a")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Acquire(cancelCtx, "https://example.org/a"); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

func TestHostOfFallsBackToDefault(t *testing.T) {
	if got := hostOf("not a url \x7f"); got != "default" {
		t.Fatalf("got %q, want default", got)
	}
	if got := hostOf("https://api.crossref.org/works/10.1/x"); got != "api.crossref.org" {
		t.Fatalf("got %q, want api.crossref.org", got)
	}
}
