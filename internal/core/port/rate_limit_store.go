package port

import (
	"context"
	"time"
)

// RateWindow is the state of one fixed window after an increment.
type RateWindow struct {
	Count   int
	ResetAt time.Time
}

// RateLimitStore keeps fixed-window counters keyed by "tier:clientKey".
type RateLimitStore interface {
	// Increment counts one request. A window that has elapsed at now is restarted
	// with ResetAt = now + window before counting.
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (RateWindow, error)
	Reset(ctx context.Context, key string) error
	ResetAll(ctx context.Context) error
}
