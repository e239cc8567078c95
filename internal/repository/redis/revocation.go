package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
)

const defaultRevocationPrefix = "admin:revoked"

// RevocationRepository marks token ids as revoked until their natural expiry.
type RevocationRepository struct {
	client *red.Client
	prefix string
}

// NewRevocationRepository constructs a Redis-backed revoked token set.
func NewRevocationRepository(client *red.Client, keyPrefix string) *RevocationRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	return &RevocationRepository{client: client, prefix: prefix}
}

// Revoke stores the token id for ttl.
func (r *RevocationRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if strings.TrimSpace(tokenID) == "" {
		return errors.New("token id is required")
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id is currently revoked.
func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if strings.TrimSpace(tokenID) == "" {
		return false, errors.New("token id is required")
	}
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists revocation: %w", err)
	}
	return n > 0, nil
}

func (r *RevocationRepository) key(tokenID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.TrimSpace(tokenID))
}

var _ port.TokenRevocationStore = (*RevocationRepository)(nil)
