package port

import (
	"context"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
)

// LockoutStore keeps consecutive failure counters per lockout key.
type LockoutStore interface {
	// RecordFailure increments the counter. Records idle for longer than resetAfter start over.
	RecordFailure(ctx context.Context, key string, at time.Time, resetAfter time.Duration) (domain.LockoutRecord, error)
	// Get returns repository.ErrNotFound when the key has no live record.
	Get(ctx context.Context, key string) (*domain.LockoutRecord, error)
	Clear(ctx context.Context, key string) error
}
