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

// TwoFactorVerifier checks one-time codes for admins that enrolled a second factor.
type TwoFactorVerifier struct {
	validator port.OTPValidator
	replay    port.OTPReplayStore
	digits    int
	replayTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// TwoFactorOption customises a TwoFactorVerifier.
type TwoFactorOption func(*TwoFactorVerifier)

// WithReplayGuard rejects codes that were already accepted within ttl.
func WithReplayGuard(store port.OTPReplayStore, ttl time.Duration) TwoFactorOption {
	return func(v *TwoFactorVerifier) {
		v.replay = store
		v.replayTTL = ttl
	}
}

// NewTwoFactorVerifier constructs a verifier expecting codes of the given length.
func NewTwoFactorVerifier(validator port.OTPValidator, digits int, logger *zap.Logger, opts ...TwoFactorOption) *TwoFactorVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if digits <= 0 {
		digits = 6
	}
	v := &TwoFactorVerifier{validator: validator, digits: digits, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WithClock overrides the time source, primarily for tests.
func (v *TwoFactorVerifier) WithClock(clock func() time.Time) {
	if clock != nil {
		v.now = clock
	}
}

// Required reports whether the principal must present a second factor.
func (v *TwoFactorVerifier) Required(principal domain.Principal) bool {
	return principal.TwoFactorEnabled
}

// Verify checks code against the principal's secret. Empty, wrong-length,
// non-numeric, replayed and mismatched codes all return ErrInvalidTwoFactorCode.
func (v *TwoFactorVerifier) Verify(ctx context.Context, principal domain.Principal, code string) error {
	code = strings.TrimSpace(code)
	if !v.wellFormed(code) {
		return ErrInvalidTwoFactorCode
	}
	if principal.TwoFactorSecret == nil || *principal.TwoFactorSecret == "" {
		v.logger.Warn("two-factor enabled without a secret", zap.String("admin_user_id", principal.AdminUserID))
		return ErrInvalidTwoFactorCode
	}

	ok, err := v.validator.Validate(code, *principal.TwoFactorSecret, v.now())
	if err != nil {
		v.logger.Warn("two-factor validation failed", zap.String("admin_user_id", principal.AdminUserID), zap.Error(err))
		return ErrInvalidTwoFactorCode
	}
	if !ok {
		return ErrInvalidTwoFactorCode
	}

	if v.replay == nil {
		return nil
	}
	fresh, err := v.replay.MarkUsed(ctx, principal.AdminUserID, code, v.replayTTL)
	if err != nil {
		return fmt.Errorf("two-factor replay guard: %w", err)
	}
	if !fresh {
		return ErrInvalidTwoFactorCode
	}
	return nil
}

func (v *TwoFactorVerifier) wellFormed(code string) bool {
	if len(code) != v.digits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
