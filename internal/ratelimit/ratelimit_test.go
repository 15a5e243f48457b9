package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst admits the first submissions", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "beyond the burst is refused", rps: 1, burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("client-1") {
					passed++
				}
			}
			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	rl.Allow("client-1")
	if rl.Allow("client-1") {
		t.Error("client-1 should be exhausted")
	}
	if !rl.Allow("client-2") {
		t.Error("client-2 should have its own bucket")
	}
}

func TestKeyedRateLimiter_WaitContextCancelled(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	rl.Allow("img.example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "img.example.com"); err == nil {
		t.Error("Wait() should fail when the context ends first")
	}
}

func TestKeyedRateLimiter_SweepDropsIdleKeys(t *testing.T) {
	rl := NewWithTTL(1, 1, time.Hour)
	defer rl.Stop()

	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(30 * time.Minute)
	rl.Allow("recent")
	now = now.Add(45 * time.Minute)

	if dropped := rl.Sweep(); dropped != 1 {
		t.Fatalf("Sweep() dropped %d, want 1", dropped)
	}
	if rl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", rl.Len())
	}

	// A forgotten key starts again with a full bucket.
	if !rl.Allow("old") {
		t.Error("old should be admitted after being swept")
	}
}
