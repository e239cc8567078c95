package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/logger"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

// LockoutConfig configures when repeated failures lock a key.
type LockoutConfig struct {
	// Threshold is the number of failures tolerated; the next one locks.
	Threshold int
	Cooldown  time.Duration
	// ResetWindow forgets a failure streak that stayed idle this long.
	ResetWindow time.Duration
}

// DefaultLockoutConfig locks after 5 failures for 15 minutes.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{Threshold: 5, Cooldown: 15 * time.Minute, ResetWindow: 15 * time.Minute}
}

// LockoutStatus describes a key's lockout state.
type LockoutStatus struct {
	Key         string
	FailedCount int
	Locked      bool
	LockedUntil time.Time
}

// RetryAfter returns the remaining cool-down at the supplied moment.
func (s LockoutStatus) RetryAfter(at time.Time) time.Duration {
	if !s.Locked {
		return 0
	}
	if d := s.LockedUntil.Sub(at); d > 0 {
		return d
	}
	return 0
}

// LockoutKeyForEmail scopes a lockout counter to an account email.
func LockoutKeyForEmail(email string) string {
	return "email:" + strings.ToLower(strings.TrimSpace(email))
}

// LockoutKeyForOrigin scopes a lockout counter to a client address.
func LockoutKeyForOrigin(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// LockoutTracker counts consecutive failed logins and locks keys that exceed the threshold.
type LockoutTracker struct {
	store  port.LockoutStore
	cfg    LockoutConfig
	policy domain.DegradationPolicy
	logger *zap.Logger
	now    func() time.Time
}

// NewLockoutTracker constructs a LockoutTracker.
func NewLockoutTracker(store port.LockoutStore, cfg LockoutConfig, policy domain.DegradationPolicy, log *zap.Logger) *LockoutTracker {
	if log == nil {
		log = zap.NewNop()
	}
	defaults := DefaultLockoutConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaults.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	if cfg.ResetWindow <= 0 {
		cfg.ResetWindow = defaults.ResetWindow
	}
	return &LockoutTracker{store: store, cfg: cfg, policy: policy, logger: log, now: time.Now}
}

// WithClock overrides the time source, primarily for tests.
func (t *LockoutTracker) WithClock(clock func() time.Time) {
	if clock != nil {
		t.now = clock
	}
}

// RecordFailure counts a failed attempt and reports whether the key is now locked.
func (t *LockoutTracker) RecordFailure(ctx context.Context, key string) (LockoutStatus, error) {
	record, err := t.store.RecordFailure(ctx, key, t.now(), t.retention())
	if err != nil {
		return LockoutStatus{Key: key}, t.degrade("record failure", key, err)
	}
	return t.statusOf(key, record), nil
}

// RecordSuccess clears the failure streak for key.
func (t *LockoutTracker) RecordSuccess(ctx context.Context, key string) error {
	if err := t.store.Clear(ctx, key); err != nil {
		return t.degrade("clear", key, err)
	}
	return nil
}

// Clear is the operator path for lifting a lockout before its cool-down elapses.
func (t *LockoutTracker) Clear(ctx context.Context, key string) error {
	if err := t.store.Clear(ctx, key); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

// Status returns the current state of key.
func (t *LockoutTracker) Status(ctx context.Context, key string) (LockoutStatus, error) {
	record, err := t.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LockoutStatus{Key: key}, nil
		}
		return LockoutStatus{Key: key}, t.degrade("read", key, err)
	}
	return t.statusOf(key, *record), nil
}

// IsLocked reports whether key is currently locked.
func (t *LockoutTracker) IsLocked(ctx context.Context, key string) (bool, error) {
	status, err := t.Status(ctx, key)
	return status.Locked, err
}

// Threshold returns the configured number of tolerated failures.
func (t *LockoutTracker) Threshold() int {
	return t.cfg.Threshold
}

func (t *LockoutTracker) statusOf(key string, record domain.LockoutRecord) LockoutStatus {
	status := LockoutStatus{Key: key, FailedCount: record.FailedCount}
	if record.FailedCount <= t.cfg.Threshold {
		return status
	}
	until := record.LastFailureAt.Add(t.cfg.Cooldown)
	if t.now().Before(until) {
		status.Locked = true
		status.LockedUntil = until
	}
	return status
}

// retention keeps records at least as long as a lock can last.
func (t *LockoutTracker) retention() time.Duration {
	if t.cfg.Cooldown > t.cfg.ResetWindow {
		return t.cfg.Cooldown
	}
	return t.cfg.ResetWindow
}

func (t *LockoutTracker) degrade(op, key string, err error) error {
	if t.policy.AllowsFallback(domain.DegradationReasonLockoutStoreUnavailable) {
		t.logger.Warn("lockout store unavailable; continuing",
			zap.String("op", op),
			zap.String("key", logger.MaskLockoutKey(key)),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("lockout %s: %w", op, err)
}
