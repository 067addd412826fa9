package embedding

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitedEmbedderThrottles(t *testing.T) {
	inner := &countingEmbedder{dims: 2}
	limited := NewRateLimitedEmbedder(inner, 20) // 50ms between refills
	ctx := context.Background()

	start := time.Now()
	// Burst of 20 passes immediately; the rest have to wait.
	for i := 0; i < 25; i++ {
		if _, err := limited.Embed(ctx, []string{"x"}); err != nil {
			t.Fatalf("Embed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("25 calls at 20 rps finished in %v, expected throttling", elapsed)
	}
}

func TestRateLimitedEmbedderCancellation(t *testing.T) {
	inner := &countingEmbedder{dims: 2}
	limited := NewRateLimitedEmbedder(inner, 0.001)
	ctx := context.Background()

	// Exhaust the single burst token.
	if _, err := limited.Embed(ctx, []string{"x"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := limited.Embed(cancelCtx, []string{"y"}); err == nil {
		t.Fatal("expected context deadline while waiting on limiter")
	}
}

func TestRateLimitedEmbedderDisabled(t *testing.T) {
	inner := &countingEmbedder{dims: 2}
	if NewRateLimitedEmbedder(inner, 0) != inner {
		t.Fatal("rps 0 must return the inner provider")
	}
}
