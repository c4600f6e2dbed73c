package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/amishk599/remoteboard/internal/model"
)

func TestWait_SameATS_EnforcesMinDelay(t *testing.T) {
	limiter := NewATSRateLimiter(100*time.Millisecond, nil)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, model.SourceGreenhouse); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, model.SourceGreenhouse); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentATS_NoCrossBlocking(t *testing.T) {
	limiter := NewATSRateLimiter(200*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, model.SourceGreenhouse); err != nil {
		t.Fatalf("greenhouse wait: %v", err)
	}

	// Immediately call for lever, which should not block.
	start := time.Now()
	if err := limiter.Wait(ctx, model.SourceLever); err != nil {
		t.Fatalf("lever wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected lever wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_Override(t *testing.T) {
	limiter := NewATSRateLimiter(5*time.Second, map[model.SourceType]time.Duration{
		model.SourceAshby: 0,
	})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, model.SourceAshby); err != nil {
			t.Fatalf("ashby wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero override should disable limiting, waited %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewATSRateLimiter(5*time.Second, nil)

	// First call to drain the bucket.
	if err := limiter.Wait(context.Background(), model.SourceGreenhouse); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, model.SourceGreenhouse); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// --- Mock for Fetcher test ---

type recordingFetcher struct {
	called bool
}

func (f *recordingFetcher) Type() model.SourceType { return model.SourceGreenhouse }

func (f *recordingFetcher) Validate(_ model.Source) error { return nil }

func (f *recordingFetcher) FetchPostings(_ context.Context, _ model.Source) ([]model.RawPosting, error) {
	f.called = true
	return nil, nil
}

func TestFetcher_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewATSRateLimiter(100*time.Millisecond, nil)
	inner := &recordingFetcher{}
	fetcher := NewFetcher(inner, limiter)
	ctx := context.Background()
	src := model.Source{ID: "gh-acme", Type: model.SourceGreenhouse}

	if _, err := fetcher.FetchPostings(ctx, src); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if !inner.called {
		t.Fatal("inner fetcher was not called on first fetch")
	}

	inner.called = false

	// A second source of the same ATS shares the bucket.
	start := time.Now()
	if _, err := fetcher.FetchPostings(ctx, model.Source{ID: "gh-other", Type: model.SourceGreenhouse}); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	elapsed := time.Since(start)

	if !inner.called {
		t.Fatal("inner fetcher was not called on second fetch")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
}
