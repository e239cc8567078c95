package domain

// FailureKind names the categories of failures reported to callers.
type FailureKind string

const (
	FailureInvalidCredentials      FailureKind = "InvalidCredentials"
	FailureAccountLocked           FailureKind = "AccountLocked"
	FailureTwoFactorRequired       FailureKind = "TwoFactorRequired"
	FailureInvalidTwoFactorCode    FailureKind = "InvalidTwoFactorCode"
	FailureRateLimited             FailureKind = "RateLimited"
	FailureInvalidToken            FailureKind = "InvalidToken"
	FailureSessionExpired          FailureKind = "SessionExpired"
	FailureAccountDeactivated      FailureKind = "AccountDeactivated"
	FailureInsufficientPermissions FailureKind = "InsufficientPermissions"
	FailureInsufficientRoleLevel   FailureKind = "InsufficientRoleLevel"
	FailureValidationError         FailureKind = "ValidationError"
	FailureInternal                FailureKind = "InternalError"
)

// RateLimitTier names a rate limiting policy class.
type RateLimitTier string

const (
	RateLimitTierGeneral RateLimitTier = "general"
	RateLimitTierAuth    RateLimitTier = "auth"
	RateLimitTierStrict  RateLimitTier = "strict"
)
