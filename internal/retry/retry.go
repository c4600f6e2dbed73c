package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/remoteboard/internal/model"
)

// Fetcher is a decorator that retries transient failures with exponential
// backoff and jitter before delegating to the wrapped SourceFetcher.
type Fetcher struct {
	inner      model.SourceFetcher
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

// NewFetcher wraps a SourceFetcher with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewFetcher(inner model.SourceFetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   2 * time.Minute,
		logger:     logger,
	}
}

func (f *Fetcher) Type() model.SourceType { return f.inner.Type() }

func (f *Fetcher) Validate(src model.Source) error { return f.inner.Validate(src) }

// FetchPostings attempts the fetch, retrying on transient errors.
func (f *Fetcher) FetchPostings(ctx context.Context, src model.Source) ([]model.RawPosting, error) {
	postings, err := f.inner.FetchPostings(ctx, src)
	if err == nil {
		return postings, nil
	}
	if !isRetryable(err) {
		return nil, err
	}

	lastErr := err
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		delay := f.backoffDelay(attempt, lastErr)

		f.logger.Warn("retrying after transient error",
			"source", src.ID,
			"attempt", attempt,
			"max_retries", f.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		postings, err = f.inner.FetchPostings(ctx, src)
		if err == nil {
			return postings, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After from the server takes precedence, capped at maxDelay.
func (f *Fetcher) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return min(httpErr.RetryAfter, f.maxDelay)
	}

	delay := f.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return min(delay, f.maxDelay)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var cfgErr *model.ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	// Network errors, DNS failures and truncated bodies.
	return true
}
