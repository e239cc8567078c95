package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitRepository_IncrementWithinWindow(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, "rl:test")

	ctx := context.Background()
	now := time.Now()
	window := 15 * time.Minute

	for i := 1; i <= 3; i++ {
		state, err := repo.Increment(ctx, "auth:10.0.0.1", window, now)
		if err != nil {
			t.Fatalf("Increment returned error: %v", err)
		}
		if state.Count != i {
			t.Fatalf("expected count %d, got %d", i, state.Count)
		}
		if !state.ResetAt.After(now) || state.ResetAt.After(now.Add(window)) {
			t.Fatalf("unexpected reset time %v", state.ResetAt)
		}
	}

	if ttl := server.TTL("rl:test:auth:10.0.0.1"); ttl <= 0 || ttl > window {
		t.Fatalf("expected window ttl, got %v", ttl)
	}

	server.FastForward(window + time.Second)

	state, err := repo.Increment(ctx, "auth:10.0.0.1", window, now.Add(window+time.Second))
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if state.Count != 1 {
		t.Fatalf("expected fresh window, got count %d", state.Count)
	}
}

func TestRateLimitRepository_KeysAreIsolated(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, "")
	ctx := context.Background()
	now := time.Now()

	if _, err := repo.Increment(ctx, "auth:a", time.Minute, now); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	state, err := repo.Increment(ctx, "auth:b", time.Minute, now)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if state.Count != 1 {
		t.Fatalf("expected independent counter, got %d", state.Count)
	}
}

func TestRateLimitRepository_ResetAndResetAll(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, "rl")
	ctx := context.Background()
	now := time.Now()

	for _, key := range []string{"general:a", "strict:a", "auth:b"} {
		if _, err := repo.Increment(ctx, key, time.Minute, now); err != nil {
			t.Fatalf("Increment returned error: %v", err)
		}
	}

	if err := repo.Reset(ctx, "general:a"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if server.Exists("rl:general:a") {
		t.Fatalf("expected general:a to be cleared")
	}
	if !server.Exists("rl:strict:a") {
		t.Fatalf("expected strict:a to survive single reset")
	}

	if err := repo.ResetAll(ctx); err != nil {
		t.Fatalf("ResetAll returned error: %v", err)
	}
	if keys := server.Keys(); len(keys) != 0 {
		t.Fatalf("expected all windows cleared, got %v", keys)
	}
}

func TestRateLimitRepository_RejectsInvalidWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, "")

	if _, err := repo.Increment(context.Background(), "k", 0, time.Now()); err == nil {
		t.Fatalf("expected error for zero window")
	}
}
