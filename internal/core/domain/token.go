package domain

import "time"

// TokenPurposeEnterpriseAdmin tags bearer tokens minted for the admin console.
const TokenPurposeEnterpriseAdmin = "enterprise_admin"

// TokenClaims is the decoded content of a validated admin bearer token.
type TokenClaims struct {
	TokenID     string
	AdminUserID string
	SessionID   string
	Purpose     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// IsExpired reports whether the token has elapsed its validity window.
func (c TokenClaims) IsExpired(at time.Time) bool {
	return !c.ExpiresAt.After(at)
}
