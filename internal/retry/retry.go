// Package retry implements the single retry combinator used by every
// network call in the system (spec §4.6), replacing the separate
// retry/backoff variants the teacher grew independently in P1, P2, and P3.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// ErrorKind classifies a failed network call for retry and reporting purposes.
type ErrorKind string

const (
	KindRateLimit   ErrorKind = "RateLimit"
	KindTimeout     ErrorKind = "Timeout"
	KindNetwork     ErrorKind = "Network"
	KindServerError ErrorKind = "ServerError"
	KindClientError ErrorKind = "ClientError"
	KindNotFound    ErrorKind = "NotFound"
	KindInvalid     ErrorKind = "Invalid"
)

// Error wraps a classified failure so callers can branch on Kind while
// errors.Is/As still reach the underlying cause.
type Error struct {
	Kind       ErrorKind
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps an HTTP status code and transport error into an ErrorKind.
// retryAfter is parsed by the caller from the response header and passed
// through unchanged.
func Classify(statusCode int, transportErr error, retryAfter time.Duration) *Error {
	if transportErr != nil {
		var netErr net.Error
		if errors.As(transportErr, &netErr) && netErr.Timeout() {
			return &Error{Kind: KindTimeout, Err: transportErr}
		}
		return &Error{Kind: KindNetwork, Err: transportErr}
	}
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimit, RetryAfter: retryAfter, Err: errors.New("rate limited")}
	case statusCode == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Err: errors.New("not found")}
	case statusCode >= 500:
		return &Error{Kind: KindServerError, Err: errors.New("server error")}
	case statusCode >= 400:
		return &Error{Kind: KindClientError, Err: errors.New("client error")}
	}
	return nil
}

// Retryable reports whether a classified error should be retried per §4.6:
// RateLimit and Timeout/Network/ServerError retry, ClientError/NotFound/
// Invalid do not.
func Retryable(kind ErrorKind) bool {
	switch kind {
	case KindRateLimit, KindTimeout, KindNetwork, KindServerError:
		return true
	default:
		return false
	}
}

// Policy configures the backoff combinator. Zero-valued fields take the
// spec's documented defaults (§6: RETRY_MAX=3, RETRY_BASE_DELAY_S=1.0,
// RETRY_MULT=2.0, RETRY_JITTER=0.25). A zero MaxDelay leaves the backoff
// uncapped.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	Jitter     float64
	MaxDelay   time.Duration
}

// DefaultPolicy returns the spec-documented defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Multiplier: 2.0,
		Jitter:     0.25,
		MaxDelay:   30 * time.Second,
	}
}

func (p Policy) backoffFor(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultPolicy().BaseDelay
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := float64(base)
	for i := 0; i < attempt; i++ {
		d *= mult
	}
	jitter := p.Jitter
	if jitter <= 0 {
		jitter = 0.25
	}
	delta := d * jitter
	d = d - delta + rand.Float64()*2*delta
	dur := time.Duration(d)
	if p.MaxDelay > 0 && dur > p.MaxDelay {
		dur = p.MaxDelay
	}
	if dur < 0 {
		dur = 0
	}
	return dur
}

// Do runs fn, retrying on transient classified errors per Policy. fn must
// return a *Error (or nil) as its error so Do can classify it; any other
// error type is treated as non-retryable (Invalid).
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) error) error {
	maxRetries := policy.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultPolicy().MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var classified *Error
		if !errors.As(err, &classified) {
			return &Error{Kind: KindInvalid, Err: err}
		}
		if !Retryable(classified.Kind) {
			return classified
		}
		if attempt == maxRetries {
			break
		}

		wait := policy.backoffFor(attempt)
		if classified.Kind == KindRateLimit && classified.RetryAfter > 0 {
			wait = classified.RetryAfter
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
