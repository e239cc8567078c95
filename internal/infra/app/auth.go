package app

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/config"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/security"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// AuthOptions carries the cross-cutting collaborators of the auth stack.
type AuthOptions struct {
	Logger    *zap.Logger
	Metrics   usecase.AuthMetrics
	Publisher port.EventPublisher
	Tracer    trace.Tracer
	Keys      security.KeyProvider
	Hasher    *security.Argon2Hasher
}

// AuthStack is the wired auth subsystem.
type AuthStack struct {
	Auth     *usecase.AuthService
	Sessions *usecase.SessionService
	JWT      *security.JWTManager
}

// NewArgon2Hasher builds the password hasher from configuration.
func NewArgon2Hasher(cfg config.Argon2Settings) (*security.Argon2Hasher, error) {
	return security.NewArgon2Hasher(port.Argon2Params{
		Memory:      cfg.Memory,
		Iterations:  cfg.Iterations,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
}

// RateLimiterConfig converts the rate_limit settings.
func RateLimiterConfig(cfg config.RateLimitSettings) usecase.RateLimiterConfig {
	return usecase.RateLimiterConfig{
		Tiers: map[domain.RateLimitTier]usecase.RatePolicy{
			domain.RateLimitTierGeneral: {Window: cfg.General.Window, MaxRequests: cfg.General.MaxRequests},
			domain.RateLimitTierAuth:    {Window: cfg.Auth.Window, MaxRequests: cfg.Auth.MaxRequests},
			domain.RateLimitTierStrict:  {Window: cfg.Strict.Window, MaxRequests: cfg.Strict.MaxRequests},
		},
		SoftThreshold: cfg.SoftThreshold,
		DelayBase:     cfg.DelayBase,
		DelayMax:      cfg.DelayMax,
		DelayMode:     cfg.DelayMode,
	}
}

// NewAuthStack wires the usecase layer over the given directory and stores.
func NewAuthStack(cfg *config.AppConfig, directory port.Directory, stores *StateStores, opts AuthOptions) (*AuthStack, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Keys == nil {
		return nil, fmt.Errorf("auth stack: key provider is required")
	}

	hasher := opts.Hasher
	if hasher == nil {
		var err error
		hasher, err = NewArgon2Hasher(cfg.Argon2)
		if err != nil {
			return nil, fmt.Errorf("configure argon2: %w", err)
		}
	}

	policy := domain.NewDegradationPolicy(domain.ParseDegradationPolicyMode(cfg.Security.DegradationPolicy))
	jwtManager := security.NewJWTManager(opts.Keys)

	keyID := cfg.JWT.KeyID
	if keyID == "" {
		keyID = opts.Keys.SigningKeyID()
	}
	audience := ""
	if len(cfg.JWT.Audience) > 0 {
		audience = cfg.JWT.Audience[0]
	}

	totp := security.NewTOTPValidator(cfg.TwoFactor.Digits, cfg.TwoFactor.Period, cfg.TwoFactor.Skew)
	twoFactor := usecase.NewTwoFactorVerifier(totp, cfg.TwoFactor.Digits, log.Named("two_factor"),
		usecase.WithReplayGuard(stores.OTPReplay, totp.Window()))

	sessions := usecase.NewSessionService(stores.Sessions, cfg.Session.TTL, opts.Publisher, log.Named("sessions"), opts.Metrics)
	tokens := usecase.NewTokenService(jwtManager, stores.Revocations, policy, usecase.TokenConfig{
		KeyID:    keyID,
		Issuer:   cfg.JWT.Issuer,
		Audience: audience,
		TTL:      cfg.JWT.TokenTTL,
	}, log.Named("tokens"))

	auth, err := usecase.NewAuthService(usecase.AuthDependencies{
		Directory:   directory,
		Writer:      directory,
		Credentials: usecase.NewCredentialVerifier(directory, hasher, log.Named("credentials")),
		Lockout: usecase.NewLockoutTracker(stores.Lockouts, usecase.LockoutConfig{
			Threshold:   cfg.Lockout.Threshold,
			Cooldown:    cfg.Lockout.Cooldown,
			ResetWindow: cfg.Lockout.ResetWindow,
		}, policy, log.Named("lockout")),
		RateLimiter: usecase.NewRateLimiter(stores.RateLimits, RateLimiterConfig(cfg.RateLimit), log.Named("rate_limit"), opts.Metrics),
		TwoFactor:   twoFactor,
		Sessions:    sessions,
		Tokens:      tokens,
		Guard:       usecase.NewAuthorizationGuard(directory, log.Named("authz")),
		Hasher:      hasher,
		Policy:      security.DefaultPasswordPolicy(),
		Publisher:   opts.Publisher,
		Metrics:     opts.Metrics,
		Logger:      log.Named("auth"),
		Tracer:      opts.Tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	return &AuthStack{Auth: auth, Sessions: sessions, JWT: jwtManager}, nil
}
