package gateway

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksAtLimit(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, 10*time.Second)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !rl.Allow(now.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("event %d blocked below the limit", i)
		}
	}
	if rl.Allow(now.Add(3 * time.Second)) {
		t.Fatalf("event allowed at the limit")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(2, 10*time.Second)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if !rl.Allow(now) || !rl.Allow(now.Add(time.Second)) {
		t.Fatalf("warmup events blocked")
	}
	if rl.Allow(now.Add(2 * time.Second)) {
		t.Fatalf("third event allowed inside the window")
	}

	// The first event ages out after ten seconds; one slot frees up.
	if !rl.Allow(now.Add(10*time.Second + time.Millisecond)) {
		t.Fatalf("event blocked after the window slid")
	}
	if rl.Allow(now.Add(10*time.Second + 2*time.Millisecond)) {
		t.Fatalf("window slide freed more than one slot")
	}
}

func TestRateLimiterDefaultsOnBadInputs(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0, 0)
	if rl.limit != rateLimitEvents || rl.window != rateLimitWindow {
		t.Fatalf("limit=%d window=%v want defaults %d/%v", rl.limit, rl.window, rateLimitEvents, rateLimitWindow)
	}
}
