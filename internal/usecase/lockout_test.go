package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository/memory"
)

type failingLockoutStore struct{}

func (failingLockoutStore) RecordFailure(context.Context, string, time.Time, time.Duration) (domain.LockoutRecord, error) {
	return domain.LockoutRecord{}, errors.New("timeout")
}

func (failingLockoutStore) Get(context.Context, string) (*domain.LockoutRecord, error) {
	return nil, errors.New("timeout")
}

func (failingLockoutStore) Clear(context.Context, string) error { return errors.New("timeout") }

func TestLockoutTracker_LocksAfterThresholdUntilCooldown(t *testing.T) {
	clock := newTestClock()
	store := memory.NewLockoutStore()
	store.WithClock(clock.Now)
	tracker := NewLockoutTracker(store, LockoutConfig{Threshold: 2, Cooldown: 10 * time.Minute, ResetWindow: 5 * time.Minute}, domain.NewDegradationPolicy(""), nil)
	tracker.WithClock(clock.Now)
	ctx := context.Background()
	key := LockoutKeyForEmail(" Admin@Example.com ")

	if key != "email:admin@example.com" {
		t.Fatalf("unexpected normalised key %q", key)
	}
	for i := 1; i <= 2; i++ {
		status, err := tracker.RecordFailure(ctx, key)
		if err != nil || status.Locked {
			t.Fatalf("failure %d: expected unlocked, got %+v %v", i, status, err)
		}
	}
	status, err := tracker.RecordFailure(ctx, key)
	if err != nil || !status.Locked {
		t.Fatalf("expected lock on threshold+1, got %+v %v", status, err)
	}
	if got := status.RetryAfter(clock.Now()); got != 10*time.Minute {
		t.Fatalf("expected full cool-down, got %s", got)
	}

	clock.Advance(9 * time.Minute)
	if locked, _ := tracker.IsLocked(ctx, key); !locked {
		t.Fatalf("expected key still locked within cool-down")
	}
	clock.Advance(2 * time.Minute)
	if locked, _ := tracker.IsLocked(ctx, key); locked {
		t.Fatalf("expected lock to lapse after cool-down")
	}
}

func TestLockoutTracker_SuccessAndIsolation(t *testing.T) {
	tracker := NewLockoutTracker(memory.NewLockoutStore(), LockoutConfig{Threshold: 1}, domain.NewDegradationPolicy(""), nil)
	ctx := context.Background()

	_, _ = tracker.RecordFailure(ctx, "ip:10.0.0.1")
	_, _ = tracker.RecordFailure(ctx, "ip:10.0.0.1")
	if locked, _ := tracker.IsLocked(ctx, "ip:10.0.0.1"); !locked {
		t.Fatalf("expected origin to be locked")
	}
	if locked, _ := tracker.IsLocked(ctx, "ip:10.0.0.2"); locked {
		t.Fatalf("lock leaked to another origin")
	}
	if err := tracker.RecordSuccess(ctx, "ip:10.0.0.1"); err != nil {
		t.Fatalf("RecordSuccess returned error: %v", err)
	}
	if locked, _ := tracker.IsLocked(ctx, "ip:10.0.0.1"); locked {
		t.Fatalf("expected success to clear the lock")
	}
}

func TestLockoutTracker_DegradationPolicy(t *testing.T) {
	ctx := context.Background()

	lenient := NewLockoutTracker(failingLockoutStore{}, DefaultLockoutConfig(), domain.NewDegradationPolicy(domain.DegradationPolicyModeLenient), nil)
	if locked, err := lenient.IsLocked(ctx, "email:a@b.c"); err != nil || locked {
		t.Fatalf("lenient policy should ignore store failures, got %v %v", locked, err)
	}

	strict := NewLockoutTracker(failingLockoutStore{}, DefaultLockoutConfig(), domain.NewDegradationPolicy(domain.DegradationPolicyModeStrict), nil)
	if _, err := strict.IsLocked(ctx, "email:a@b.c"); err == nil {
		t.Fatalf("strict policy should surface store failures")
	}
	if _, err := strict.RecordFailure(ctx, "email:a@b.c"); err == nil {
		t.Fatalf("strict policy should surface record failures")
	}
}
