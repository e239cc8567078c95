package port

import (
	"context"
	"time"
)

// TokenRevocationStore remembers explicitly revoked token ids until their natural expiry.
type TokenRevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
