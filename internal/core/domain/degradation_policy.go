package domain

import "strings"

// DegradationPolicyMode enumerates how security checks behave when their backing store is unavailable.
type DegradationPolicyMode string

const (
	// DegradationPolicyModeLenient lets requests proceed when throttling or revocation state cannot be read.
	DegradationPolicyModeLenient DegradationPolicyMode = "lenient"
	// DegradationPolicyModeStrict rejects requests whenever that state cannot be confirmed.
	DegradationPolicyModeStrict DegradationPolicyMode = "strict"
)

// DegradationReason captures which dependency failed.
type DegradationReason string

const (
	// DegradationReasonRateLimitStoreUnavailable denotes the rate window store failed.
	DegradationReasonRateLimitStoreUnavailable DegradationReason = "rate_limit_store_unavailable"
	// DegradationReasonLockoutStoreUnavailable denotes the lockout counters could not be read or written.
	DegradationReasonLockoutStoreUnavailable DegradationReason = "lockout_store_unavailable"
	// DegradationReasonRevocationStoreUnavailable denotes the revoked token set could not be consulted.
	DegradationReasonRevocationStoreUnavailable DegradationReason = "revocation_store_unavailable"
)

// DegradationPolicy centralises how the service responds when auxiliary security state is missing.
type DegradationPolicy struct {
	mode DegradationPolicyMode
}

// NewDegradationPolicy constructs a policy with the provided mode, defaulting to lenient when unspecified.
func NewDegradationPolicy(mode DegradationPolicyMode) DegradationPolicy {
	if mode != DegradationPolicyModeStrict {
		mode = DegradationPolicyModeLenient
	}
	return DegradationPolicy{mode: mode}
}

// ParseDegradationPolicyMode normalises textual input into a supported policy mode.
func ParseDegradationPolicyMode(value string) DegradationPolicyMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(DegradationPolicyModeStrict):
		return DegradationPolicyModeStrict
	default:
		return DegradationPolicyModeLenient
	}
}

// Mode returns the underlying policy mode.
func (p DegradationPolicy) Mode() DegradationPolicyMode {
	return p.mode
}

// IsStrict indicates whether the policy rejects degraded states.
func (p DegradationPolicy) IsStrict() bool {
	return p.mode == DegradationPolicyModeStrict
}

// AllowsFallback determines if the policy permits continuing when the supplied reason occurs.
// Rate limiting always fails open: the window store is never a security boundary on its own.
func (p DegradationPolicy) AllowsFallback(reason DegradationReason) bool {
	if reason == DegradationReasonRateLimitStoreUnavailable {
		return true
	}
	return !p.IsStrict()
}
