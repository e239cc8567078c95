package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/security"
)

// TokenSigner signs and parses admin bearer tokens.
type TokenSigner interface {
	SignAdminToken(kid string, claims *security.AdminTokenClaims) (string, error)
	ParseAdminToken(raw string, opts security.ParseOptions) (*security.AdminTokenClaims, error)
}

// TokenConfig configures issued tokens.
type TokenConfig struct {
	KeyID    string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// IssuedToken is a signed token and the claims it carries.
type IssuedToken struct {
	Token  string
	Claims domain.TokenClaims
}

// TokenService issues session-bound admin tokens and validates presented ones.
type TokenService struct {
	signer      TokenSigner
	revocations port.TokenRevocationStore
	policy      domain.DegradationPolicy
	cfg         TokenConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewTokenService constructs a TokenService. revocations may be nil, in which
// case tokens are only invalidated through their session.
func NewTokenService(signer TokenSigner, revocations port.TokenRevocationStore, policy domain.DegradationPolicy, cfg TokenConfig, log *zap.Logger) *TokenService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}
	return &TokenService{signer: signer, revocations: revocations, policy: policy, cfg: cfg, logger: log, now: time.Now}
}

// WithClock overrides the time source, primarily for tests.
func (s *TokenService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Issue mints a token bound to the admin and session. The token never outlives expiresAt.
func (s *TokenService) Issue(adminUserID, sessionID string, expiresAt time.Time) (*IssuedToken, error) {
	now := s.now().UTC()
	ttl := s.cfg.TTL
	if !expiresAt.IsZero() {
		if remaining := expiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("issue token: session already expired")
	}

	opts := security.AdminTokenOptions{
		AdminUserID: adminUserID,
		SessionID:   sessionID,
		Purpose:     domain.TokenPurposeEnterpriseAdmin,
		Issuer:      s.cfg.Issuer,
		TTL:         ttl,
		IssuedAt:    now,
		JTI:         uuid.NewString(),
	}
	if s.cfg.Audience != "" {
		opts.Audience = []string{s.cfg.Audience}
	}
	claims, err := security.NewAdminTokenClaims(opts)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	signed, err := s.signer.SignAdminToken(s.cfg.KeyID, claims)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &IssuedToken{Token: signed, Claims: toTokenClaims(claims)}, nil
}

// Validate parses the token and checks its signature, expiry, purpose and
// revocation. Every rejection wraps ErrInvalidToken.
func (s *TokenService) Validate(ctx context.Context, raw string) (*domain.TokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := s.signer.ParseAdminToken(raw, security.ParseOptions{
		Issuer:   s.cfg.Issuer,
		Audience: s.cfg.Audience,
		Purpose:  domain.TokenPurposeEnterpriseAdmin,
		Now:      s.now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims := toTokenClaims(parsed)

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			if !s.policy.AllowsFallback(domain.DegradationReasonRevocationStoreUnavailable) {
				return nil, fmt.Errorf("%w: revocation state unavailable", ErrInvalidToken)
			}
			s.logger.Warn("revocation store unavailable; relying on session check", zap.Error(err))
		} else if revoked {
			return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
		}
	}
	return &claims, nil
}

// Revoke blocks the token id until the token would have expired anyway.
func (s *TokenService) Revoke(ctx context.Context, claims domain.TokenClaims) error {
	if s.revocations == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func toTokenClaims(claims *security.AdminTokenClaims) domain.TokenClaims {
	out := domain.TokenClaims{
		TokenID:     claims.ID,
		AdminUserID: claims.AdminUserID,
		SessionID:   claims.SessionID,
		Purpose:     claims.Purpose,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out
}
