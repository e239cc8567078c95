package port

import (
	"context"
	"time"
)

// PasswordPolicyValidator enforces password strength requirements.
// userInputs are account attributes the password must not be derived from.
type PasswordPolicyValidator interface {
	Validate(password string, userInputs ...string) error
}

// Argon2Params captures tunable parameters for the Argon2id hashing algorithm.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// OTPValidator checks a time-based one-time code against a shared secret.
type OTPValidator interface {
	Validate(code string, secret string, at time.Time) (bool, error)
}

// OTPReplayStore remembers accepted one-time codes until they can no longer validate.
type OTPReplayStore interface {
	MarkUsed(ctx context.Context, adminUserID string, code string, ttl time.Duration) (bool, error)
}
