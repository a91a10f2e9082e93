package web

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
const HeaderRetryAfter = "Retry-After"

// MaxRetryAfter bounds how long a single Retry-After can pause the crawl.
const MaxRetryAfter = time.Minute

// RateLimiter throttles requests to one host.
// It combines a token bucket with a pause requested by the server.
type RateLimiter struct {
	mu         sync.Mutex
	bucket     *rate.Limiter
	pauseUntil time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per second.
// A non-positive rate disables the token bucket.
func NewRateLimiter(perSecond float64) *RateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimiter{bucket: rate.NewLimiter(limit, 1)}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	pauseUntil := r.pauseUntil
	r.mu.Unlock()

	if d := time.Until(pauseUntil); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.bucket.Wait(ctx)
}

// Observe records a response. A 429 or 503 with Retry-After pauses
// subsequent requests. It reports whether the response was throttled.
func (r *RateLimiter) Observe(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return false
	}

	d := parseRetryAfter(resp.Header.Get(HeaderRetryAfter), time.Now())
	if d <= 0 {
		return resp.StatusCode == http.StatusTooManyRequests
	}
	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}

	r.mu.Lock()
	if until := time.Now().Add(d); until.After(r.pauseUntil) {
		r.pauseUntil = until
	}
	r.mu.Unlock()
	return true
}

// PausedUntil returns the end of the current server-requested pause.
func (r *RateLimiter) PausedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pauseUntil
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return at.Sub(now)
	}
	return 0
}
