package usecase

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
)

var (
	// ErrInvalidCredentials covers unknown emails, wrong passwords and inactive accounts alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates too many consecutive failed logins for the email or origin.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrTwoFactorRequired indicates a second factor must accompany the password.
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrInvalidTwoFactorCode indicates the submitted one-time code was rejected.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	// ErrRateLimited indicates the caller exceeded a rate limit tier.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrInvalidToken indicates a malformed, expired, revoked or tampered bearer token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionExpired indicates the token is valid but its session no longer exists.
	ErrSessionExpired = errors.New("session expired")
	// ErrAccountDeactivated indicates the admin bound to the token is no longer active.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrInsufficientPermissions indicates the caller's role lacks the required permission.
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	// ErrInsufficientRoleLevel indicates the caller's role level is below the required minimum.
	ErrInsufficientRoleLevel = errors.New("insufficient role level")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrDirectoryReadOnly indicates the configured directory does not accept writes.
	ErrDirectoryReadOnly = errors.New("directory is read-only")
)

// RateLimitExceededError carries the tier and the time until the window resets.
type RateLimitExceededError struct {
	Tier       domain.RateLimitTier
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s tier; retry after %ds", e.Tier, e.RetryAfterSeconds())
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitExceededError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterSeconds rounds the wait up to whole seconds, never below one.
func (e *RateLimitExceededError) RetryAfterSeconds() int {
	return ceilSeconds(e.RetryAfter)
}

// AccountLockedError carries the remaining cool-down.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return ErrAccountLocked.Error()
}

// Is lets errors.Is(err, ErrAccountLocked) match.
func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// RetryAfterSeconds rounds the cool-down up to whole seconds, never below one.
func (e *AccountLockedError) RetryAfterSeconds() int {
	return ceilSeconds(e.RetryAfter)
}

// ValidationError describes which input was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

var failureKinds = []struct {
	err  error
	kind domain.FailureKind
}{
	{ErrValidation, domain.FailureValidationError},
	{ErrRateLimited, domain.FailureRateLimited},
	{ErrAccountLocked, domain.FailureAccountLocked},
	{ErrInvalidCredentials, domain.FailureInvalidCredentials},
	{ErrTwoFactorRequired, domain.FailureTwoFactorRequired},
	{ErrInvalidTwoFactorCode, domain.FailureInvalidTwoFactorCode},
	{ErrInvalidToken, domain.FailureInvalidToken},
	{ErrSessionExpired, domain.FailureSessionExpired},
	{ErrAccountDeactivated, domain.FailureAccountDeactivated},
	{ErrInsufficientPermissions, domain.FailureInsufficientPermissions},
	{ErrInsufficientRoleLevel, domain.FailureInsufficientRoleLevel},
}

// FailureKindOf classifies err. Unknown errors are FailureInternal.
func FailureKindOf(err error) domain.FailureKind {
	if err == nil {
		return ""
	}
	for _, fk := range failureKinds {
		if errors.Is(err, fk.err) {
			return fk.kind
		}
	}
	return domain.FailureInternal
}
