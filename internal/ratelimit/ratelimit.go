package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/remoteboard/internal/model"
)

// ATSRateLimiter enforces a minimum delay between requests to the same ATS
// backend. Each ATS gets its own token bucket with a burst of one.
type ATSRateLimiter struct {
	mu        sync.Mutex
	limiters  map[model.SourceType]*rate.Limiter
	minDelay  time.Duration
	overrides map[model.SourceType]time.Duration
}

// NewATSRateLimiter creates a rate limiter that enforces minDelay between
// consecutive requests to the same ATS provider. overrides replaces minDelay
// for individual ATS types and may be nil.
func NewATSRateLimiter(minDelay time.Duration, overrides map[model.SourceType]time.Duration) *ATSRateLimiter {
	return &ATSRateLimiter{
		limiters:  make(map[model.SourceType]*rate.Limiter),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

// Wait blocks until the given ATS may be called again.
// Returns an error if the context is cancelled while waiting.
func (r *ATSRateLimiter) Wait(ctx context.Context, ats model.SourceType) error {
	if err := r.limiter(ats).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", ats, err)
	}
	return nil
}

func (r *ATSRateLimiter) limiter(ats model.SourceType) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[ats]; ok {
		return l
	}
	delay := r.minDelay
	if d, ok := r.overrides[ats]; ok {
		delay = d
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	l := rate.NewLimiter(limit, 1)
	r.limiters[ats] = l
	return l
}

// Fetcher is a decorator that enforces ATS-level rate limiting before
// delegating to the wrapped SourceFetcher.
type Fetcher struct {
	inner   model.SourceFetcher
	limiter *ATSRateLimiter
}

// NewFetcher wraps a SourceFetcher with ATS-level rate limiting.
// All fetchers should share the same limiter instance.
func NewFetcher(inner model.SourceFetcher, limiter *ATSRateLimiter) *Fetcher {
	return &Fetcher{
		inner:   inner,
		limiter: limiter,
	}
}

func (f *Fetcher) Type() model.SourceType { return f.inner.Type() }

func (f *Fetcher) Validate(src model.Source) error { return f.inner.Validate(src) }

// FetchPostings waits for the rate limiter to allow a request, then delegates
// to the wrapped fetcher.
func (f *Fetcher) FetchPostings(ctx context.Context, src model.Source) ([]model.RawPosting, error) {
	if err := f.limiter.Wait(ctx, f.inner.Type()); err != nil {
		return nil, err
	}
	return f.inner.FetchPostings(ctx, src)
}
