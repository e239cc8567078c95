package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/security"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository/memory"
)

const (
	testPassword      = "Password123"
	superAdminEmail   = "login@x.com"
	readerAdminEmail  = "reader@x.com"
	totpAdminEmail    = "totp@x.com"
	inactiveUserEmail = "inactive@x.com"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu          sync.Mutex
	created     []domain.SessionCreatedEvent
	revoked     []domain.SessionRevokedEvent
	invalidated []domain.SessionsInvalidatedEvent
	locked      []domain.LoginLockedEvent
}

func (p *recordingPublisher) PublishSessionCreated(_ context.Context, event domain.SessionCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, event)
	return nil
}

func (p *recordingPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

func (p *recordingPublisher) PublishSessionsInvalidated(_ context.Context, event domain.SessionsInvalidatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidated = append(p.invalidated, event)
	return nil
}

func (p *recordingPublisher) PublishLoginLocked(_ context.Context, event domain.LoginLockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = append(p.locked, event)
	return nil
}

type countingHasher struct {
	port.PasswordHasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(password, encoded string) (bool, error) {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.PasswordHasher.Verify(password, encoded)
}

func (h *countingHasher) Verifies() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifies
}

type harness struct {
	clock      *testClock
	directory  *memory.Directory
	sessions   *memory.SessionStore
	rates      *memory.RateLimitStore
	lockouts   *memory.LockoutStore
	revoked    *memory.ExpiringSet
	hasher     *countingHasher
	totp       *security.TOTPValidator
	totpSecret string
	publisher  *recordingPublisher

	limiter    *RateLimiter
	lockout    *LockoutTracker
	sessionSvc *SessionService
	tokens     *TokenService
	guard      *AuthorizationGuard
	auth       *AuthService
	sleeps     []time.Duration
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	rates   RateLimiterConfig
	lockout LockoutConfig
}

func withAuthTier(max int) harnessOption {
	return func(cfg *harnessConfig) {
		cfg.rates.Tiers[domain.RateLimitTierAuth] = RatePolicy{Window: 15 * time.Minute, MaxRequests: max}
	}
}

func withLockoutThreshold(threshold int) harnessOption {
	return func(cfg *harnessConfig) {
		cfg.lockout.Threshold = threshold
	}
}

func fastArgon2Params() port.Argon2Params {
	return port.Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{rates: DefaultRateLimiterConfig(), lockout: DefaultLockoutConfig()}
	// Most tests exercise lockout and credentials, not the auth quota.
	cfg.rates.Tiers[domain.RateLimitTierAuth] = RatePolicy{Window: 15 * time.Minute, MaxRequests: 1000}
	for _, opt := range opts {
		opt(&cfg)
	}

	log := zaptest.NewLogger(t)
	h := &harness{
		clock:     newTestClock(),
		directory: memory.NewDirectory(),
		sessions:  memory.NewSessionStore(),
		rates:     memory.NewRateLimitStore(),
		lockouts:  memory.NewLockoutStore(),
		revoked:   memory.NewExpiringSet(),
		totp:      security.NewTOTPValidator(6, 30, 1),
		publisher: &recordingPublisher{},
	}
	h.sessions.WithClock(h.clock.Now)
	h.lockouts.WithClock(h.clock.Now)
	h.revoked.WithClock(h.clock.Now)

	argon, err := security.NewArgon2Hasher(fastArgon2Params())
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}
	h.hasher = &countingHasher{PasswordHasher: argon}

	secret, _, err := security.GenerateTOTPSecret("Admin Console", totpAdminEmail)
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	h.totpSecret = secret
	h.seed(t, argon)

	keys, err := security.NewEphemeralKeyProvider("test-kid")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider: %v", err)
	}
	policy := domain.NewDegradationPolicy(domain.DegradationPolicyModeLenient)

	h.limiter = NewRateLimiter(h.rates, cfg.rates, log, nil)
	h.limiter.WithClock(h.clock.Now)
	h.limiter.WithSleeper(func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	})

	h.lockout = NewLockoutTracker(h.lockouts, cfg.lockout, policy, log)
	h.lockout.WithClock(h.clock.Now)

	h.sessionSvc = NewSessionService(h.sessions, 8*time.Hour, h.publisher, log, nil)
	h.sessionSvc.WithClock(h.clock.Now)

	h.tokens = NewTokenService(security.NewJWTManager(keys), h.revoked, policy, TokenConfig{
		KeyID:    keys.SigningKeyID(),
		Issuer:   "admin-auth-test",
		Audience: "admin-console",
		TTL:      8 * time.Hour,
	}, log)
	h.tokens.WithClock(h.clock.Now)

	twoFactor := NewTwoFactorVerifier(h.totp, 6, log, WithReplayGuard(h.revoked, h.totp.Window()))
	twoFactor.WithClock(h.clock.Now)

	h.guard = NewAuthorizationGuard(h.directory, log)

	h.auth, err = NewAuthService(AuthDependencies{
		Directory:   h.directory,
		Writer:      h.directory,
		Credentials: NewCredentialVerifier(h.directory, h.hasher, log),
		Lockout:     h.lockout,
		RateLimiter: h.limiter,
		TwoFactor:   twoFactor,
		Sessions:    h.sessionSvc,
		Tokens:      h.tokens,
		Guard:       h.guard,
		Hasher:      argon,
		Publisher:   h.publisher,
		Logger:      log,
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	h.auth.WithClock(h.clock.Now)
	return h
}

func (h *harness) seed(t *testing.T, hasher port.PasswordHasher) {
	t.Helper()
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	now := h.clock.Now()

	h.directory.PutRole(domain.Role{ID: "role-super", Name: "super_admin", Permissions: []string{domain.PermissionWildcard}, Level: 100})
	h.directory.PutRole(domain.Role{ID: "role-reader", Name: "reader", Permissions: []string{"users:read"}, Level: 1})

	secret := h.totpSecret
	accounts := []struct {
		userID, adminID, email, roleID string
		active, twoFactor              bool
	}{
		{"user-1", "admin-1", superAdminEmail, "role-super", true, false},
		{"user-2", "admin-2", readerAdminEmail, "role-reader", true, false},
		{"user-3", "admin-3", totpAdminEmail, "role-super", true, true},
		{"user-4", "admin-4", inactiveUserEmail, "role-super", false, false},
	}
	for _, acc := range accounts {
		h.directory.PutUser(domain.User{ID: acc.userID, Email: acc.email, PasswordHash: hash, IsActive: acc.active, CreatedAt: now, UpdatedAt: now})
		admin := domain.AdminUser{ID: acc.adminID, UserID: acc.userID, RoleID: acc.roleID, IsActive: true, TwoFactorEnabled: acc.twoFactor, CreatedAt: now, UpdatedAt: now}
		if acc.twoFactor {
			admin.TwoFactorSecret = &secret
		}
		h.directory.PutAdminUser(admin)
	}
}

func (h *harness) login(t *testing.T, email string) *LoginResult {
	t.Helper()
	result, err := h.auth.Login(context.Background(), LoginRequest{
		Email:    email,
		Password: testPassword,
		Client:   domain.ClientInfo{IP: "203.0.113.7", UserAgent: "go-test"},
	})
	if err != nil {
		t.Fatalf("Login(%s) returned error: %v", email, err)
	}
	if result.Token == "" {
		t.Fatalf("Login(%s) returned no token", email)
	}
	return result
}
