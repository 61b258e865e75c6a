package gateway

import (
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !rl.Allow(now) {
			t.Fatalf("event %d: expected allowed", i)
		}
	}
	if rl.Allow(now) {
		t.Fatalf("4th event within window should be rejected")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)
	now := time.Now()

	if !rl.Allow(now) || !rl.Allow(now) {
		t.Fatalf("expected first two events allowed")
	}
	if rl.Allow(now) {
		t.Fatalf("third event should be rejected")
	}
	if !rl.Allow(now.Add(200 * time.Millisecond)) {
		t.Fatalf("event after window should be allowed")
	}
}

func TestRateLimiter_InvalidConfigFallsBackToDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.limit != rateLimitEvents || rl.window != rateLimitWindow {
		t.Fatalf("expected fallback to package defaults, got limit=%d window=%v", rl.limit, rl.window)
	}
}
