package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrMissingSecret is returned when secret is empty.
var ErrMissingSecret = errors.New("totp secret is required")

// TOTPValidator checks RFC 6238 codes with a configurable skew of whole periods.
type TOTPValidator struct {
	opts totp.ValidateOpts
}

// NewTOTPValidator constructs a validator. Zero values fall back to 6 digits, 30s periods and a skew of 1.
func NewTOTPValidator(digits int, period uint, skew uint) *TOTPValidator {
	if digits <= 0 {
		digits = 6
	}
	if period == 0 {
		period = 30
	}
	return &TOTPValidator{opts: totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.Digits(digits),
		Algorithm: otp.AlgorithmSHA1,
	}}
}

// Digits returns the expected code length.
func (v *TOTPValidator) Digits() int {
	return v.opts.Digits.Length()
}

// Window returns how long a single code can keep validating, skew included.
func (v *TOTPValidator) Window() time.Duration {
	return time.Duration(v.opts.Period*(2*v.opts.Skew+1)) * time.Second
}

// Validate reports whether code is valid for secret at the given instant.
func (v *TOTPValidator) Validate(code, secret string, at time.Time) (bool, error) {
	if strings.TrimSpace(secret) == "" {
		return false, ErrMissingSecret
	}
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), v.opts)
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, fmt.Errorf("totp validate: %w", err)
	}
	return ok, nil
}

// GenerateTOTPSecret creates a new shared secret and its otpauth:// provisioning URL.
func GenerateTOTPSecret(issuer, accountName string) (secret string, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: accountName})
	if err != nil {
		return "", "", fmt.Errorf("totp generate: %w", err)
	}
	return key.Secret(), key.URL(), nil
}
