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

const defaultOTPPrefix = "admin:otp:used"

// OTPReplayRepository remembers accepted one-time codes so each code can be used once per admin.
type OTPReplayRepository struct {
	client *red.Client
	prefix string
}

// NewOTPReplayRepository constructs the Redis-backed replay guard.
func NewOTPReplayRepository(client *red.Client, keyPrefix string) *OTPReplayRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultOTPPrefix
	}
	return &OTPReplayRepository{client: client, prefix: prefix}
}

// MarkUsed records the code and reports whether this was its first use.
func (r *OTPReplayRepository) MarkUsed(ctx context.Context, adminUserID, code string, ttl time.Duration) (bool, error) {
	adminUserID = strings.TrimSpace(adminUserID)
	code = strings.TrimSpace(code)
	if adminUserID == "" || code == "" {
		return false, errors.New("admin user id and code are required")
	}
	if ttl <= 0 {
		return false, errors.New("ttl must be positive")
	}

	first, err := r.client.SetNX(ctx, fmt.Sprintf("%s:%s:%s", r.prefix, adminUserID, code), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis mark otp used: %w", err)
	}
	return first, nil
}

var _ port.OTPReplayStore = (*OTPReplayRepository)(nil)
