package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
)

// Progressive delay modes for tiers with a soft threshold.
const (
	DelayModeSleep  = "sleep"
	DelayModeReject = "reject"
)

// RatePolicy bounds the number of requests per fixed window.
type RatePolicy struct {
	Window      time.Duration
	MaxRequests int
}

// RateLimiterConfig configures the tiers and the strict-tier progressive delay.
type RateLimiterConfig struct {
	Tiers         map[domain.RateLimitTier]RatePolicy
	SoftThreshold int
	DelayBase     time.Duration
	DelayMax      time.Duration
	DelayMode     string
}

// DefaultRateLimiterConfig returns general 100/15m, auth 5/15m and strict 5/15m
// with a 100ms progressive delay beyond 3 strict requests.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Tiers: map[domain.RateLimitTier]RatePolicy{
			domain.RateLimitTierGeneral: {Window: 15 * time.Minute, MaxRequests: 100},
			domain.RateLimitTierAuth:    {Window: 15 * time.Minute, MaxRequests: 5},
			domain.RateLimitTierStrict:  {Window: 15 * time.Minute, MaxRequests: 5},
		},
		SoftThreshold: 3,
		DelayBase:     100 * time.Millisecond,
		DelayMax:      2 * time.Second,
		DelayMode:     DelayModeSleep,
	}
}

// RateDecision is the outcome of a single rate check.
type RateDecision struct {
	Allowed    bool
	Count      int
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	Delay      time.Duration
	// Degraded is set when the window store failed and the request was let through.
	Degraded bool
}

// RateLimiter enforces fixed-window request quotas per tier and client key.
type RateLimiter struct {
	store   port.RateLimitStore
	cfg     RateLimiterConfig
	logger  *zap.Logger
	metrics AuthMetrics
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter constructs a RateLimiter.
func NewRateLimiter(store port.RateLimitStore, cfg RateLimiterConfig, logger *zap.Logger, metrics AuthMetrics) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Tiers == nil {
		cfg.Tiers = DefaultRateLimiterConfig().Tiers
	}
	if cfg.DelayMode == "" {
		cfg.DelayMode = DelayModeSleep
	}
	return &RateLimiter{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: metricsOrNop(metrics),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// WithClock overrides the time source, primarily for tests.
func (l *RateLimiter) WithClock(clock func() time.Time) {
	if clock != nil {
		l.now = clock
	}
}

// WithSleeper overrides how progressive delays are served, primarily for tests.
func (l *RateLimiter) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) {
	if sleep != nil {
		l.sleep = sleep
	}
}

// Policy returns the configured policy for tier.
func (l *RateLimiter) Policy(tier domain.RateLimitTier) (RatePolicy, bool) {
	policy, ok := l.cfg.Tiers[tier]
	return policy, ok
}

// Allow counts one request for (tier, clientKey). A denied request returns a
// *RateLimitExceededError alongside the decision. On the strict tier, requests
// past the soft threshold are delayed before being admitted; the wait honours
// ctx cancellation.
func (l *RateLimiter) Allow(ctx context.Context, tier domain.RateLimitTier, clientKey string) (RateDecision, error) {
	policy, ok := l.cfg.Tiers[tier]
	if !ok {
		return RateDecision{}, fmt.Errorf("rate limiter: unknown tier %q", tier)
	}
	now := l.now()

	window, err := l.store.Increment(ctx, storeKey(tier, clientKey), policy.Window, now)
	if err != nil {
		l.logger.Warn("rate limit store unavailable; allowing request",
			zap.String("tier", string(tier)),
			zap.Error(err),
		)
		return RateDecision{Allowed: true, Limit: policy.MaxRequests, Remaining: policy.MaxRequests, Degraded: true}, nil
	}

	decision := RateDecision{
		Allowed: true,
		Count:   window.Count,
		Limit:   policy.MaxRequests,
		ResetAt: window.ResetAt,
	}
	if remaining := policy.MaxRequests - window.Count; remaining > 0 {
		decision.Remaining = remaining
	}

	if window.Count > policy.MaxRequests {
		decision.Allowed = false
		decision.RetryAfter = window.ResetAt.Sub(now)
		l.metrics.ObserveRateLimited(tier)
		return decision, &RateLimitExceededError{Tier: tier, RetryAfter: decision.RetryAfter}
	}

	if tier != domain.RateLimitTierStrict {
		return decision, nil
	}
	decision.Delay = l.progressiveDelay(window.Count)
	if decision.Delay <= 0 {
		return decision, nil
	}

	if l.cfg.DelayMode == DelayModeReject {
		decision.Allowed = false
		decision.RetryAfter = decision.Delay
		l.metrics.ObserveRateLimited(tier)
		return decision, &RateLimitExceededError{Tier: tier, RetryAfter: decision.Delay}
	}
	if err := l.sleep(ctx, decision.Delay); err != nil {
		return decision, err
	}
	return decision, nil
}

// Reset clears the window for one (tier, clientKey) pair.
func (l *RateLimiter) Reset(ctx context.Context, tier domain.RateLimitTier, clientKey string) error {
	return l.store.Reset(ctx, storeKey(tier, clientKey))
}

// ResetAll clears every window.
func (l *RateLimiter) ResetAll(ctx context.Context) error {
	return l.store.ResetAll(ctx)
}

// progressiveDelay is DelayBase * 2^(count-SoftThreshold) once count exceeds the threshold.
func (l *RateLimiter) progressiveDelay(count int) time.Duration {
	if l.cfg.SoftThreshold <= 0 || l.cfg.DelayBase <= 0 || count <= l.cfg.SoftThreshold {
		return 0
	}
	shift := count - l.cfg.SoftThreshold
	delay := l.cfg.DelayBase
	for i := 0; i < shift; i++ {
		delay *= 2
		if l.cfg.DelayMax > 0 && delay >= l.cfg.DelayMax {
			return l.cfg.DelayMax
		}
	}
	if l.cfg.DelayMax > 0 && delay > l.cfg.DelayMax {
		return l.cfg.DelayMax
	}
	return delay
}

func storeKey(tier domain.RateLimitTier, clientKey string) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		clientKey = "unknown"
	}
	return string(tier) + ":" + clientKey
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
