package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

const (
	defaultLockoutPrefix = "admin:lockout"

	fieldFailedCount   = "failed_count"
	fieldLastFailureAt = "last_failure_at"
)

// LockoutRepository stores failure counters as hashes that expire once the key has been idle long enough.
type LockoutRepository struct {
	client *red.Client
	prefix string
}

// NewLockoutRepository constructs a Redis-backed lockout store.
func NewLockoutRepository(client *red.Client, keyPrefix string) *LockoutRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultLockoutPrefix
	}
	return &LockoutRepository{client: client, prefix: prefix}
}

// RecordFailure increments the counter for key and pushes its expiry out by resetAfter.
func (r *LockoutRepository) RecordFailure(ctx context.Context, key string, at time.Time, resetAfter time.Duration) (domain.LockoutRecord, error) {
	if strings.TrimSpace(key) == "" {
		return domain.LockoutRecord{}, errors.New("lockout key is required")
	}
	if resetAfter <= 0 {
		return domain.LockoutRecord{}, errors.New("reset window must be positive")
	}

	redisKey := r.key(key)
	pipe := r.client.TxPipeline()
	count := pipe.HIncrBy(ctx, redisKey, fieldFailedCount, 1)
	pipe.HSet(ctx, redisKey, fieldLastFailureAt, strconv.FormatInt(at.UnixNano(), 10))
	pipe.PExpire(ctx, redisKey, resetAfter)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.LockoutRecord{}, fmt.Errorf("redis record lockout failure: %w", err)
	}

	return domain.LockoutRecord{FailedCount: int(count.Val()), LastFailureAt: at}, nil
}

// Get loads the live record for key.
func (r *LockoutRepository) Get(ctx context.Context, key string) (*domain.LockoutRecord, error) {
	values, err := r.client.HGetAll(ctx, r.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get lockout: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	count, err := strconv.Atoi(values[fieldFailedCount])
	if err != nil {
		return nil, fmt.Errorf("parse failed_count: %w", err)
	}
	nanos, err := strconv.ParseInt(values[fieldLastFailureAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last_failure_at: %w", err)
	}

	return &domain.LockoutRecord{FailedCount: count, LastFailureAt: time.Unix(0, nanos).UTC()}, nil
}

// Clear drops the record for key.
func (r *LockoutRepository) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis clear lockout: %w", err)
	}
	return nil
}

func (r *LockoutRepository) key(identifier string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.TrimSpace(identifier))
}

var _ port.LockoutStore = (*LockoutRepository)(nil)
