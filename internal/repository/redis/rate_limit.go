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

const defaultRateLimitPrefix = "admin:rl"

// fixedWindowScript increments the window counter and starts the window on the first hit.
// It returns the new count and the remaining window lifetime in milliseconds.
var fixedWindowScript = red.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RateLimitRepository keeps fixed-window counters in Redis with a TTL equal to the window.
type RateLimitRepository struct {
	client *red.Client
	prefix string
}

// NewRateLimitRepository constructs a repository using the provided Redis client and key prefix.
func NewRateLimitRepository(client *red.Client, keyPrefix string) *RateLimitRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RateLimitRepository{client: client, prefix: prefix}
}

// Increment counts one request in the window identified by key.
func (r *RateLimitRepository) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (port.RateWindow, error) {
	if window <= 0 {
		return port.RateWindow{}, errors.New("window must be positive")
	}
	if strings.TrimSpace(key) == "" {
		return port.RateWindow{}, errors.New("rate limit key is required")
	}

	values, err := fixedWindowScript.Run(ctx, r.client, []string{r.key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return port.RateWindow{}, fmt.Errorf("redis rate limit increment: %w", err)
	}
	if len(values) != 2 {
		return port.RateWindow{}, fmt.Errorf("redis rate limit increment: unexpected reply %v", values)
	}

	return port.RateWindow{
		Count:   int(values[0]),
		ResetAt: now.Add(time.Duration(values[1]) * time.Millisecond),
	}, nil
}

// Reset clears the window for a single key.
func (r *RateLimitRepository) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete rate window: %w", err)
	}
	return nil
}

// ResetAll clears every window under the repository prefix.
func (r *RateLimitRepository) ResetAll(ctx context.Context) error {
	return deleteByPattern(ctx, r.client, r.prefix+":*")
}

func (r *RateLimitRepository) key(identifier string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.TrimSpace(identifier))
}

func deleteByPattern(ctx context.Context, client *red.Client, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete %s: %w", pattern, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
