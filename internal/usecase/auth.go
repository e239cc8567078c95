package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/logger"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/security"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

const tracerName = "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"

// LoginRequest carries the inputs of one login attempt.
type LoginRequest struct {
	Email         string
	Password      string
	TwoFactorCode string
	Client        domain.ClientInfo
}

// LoginResult is either a full login (Token set) or a request for the second
// factor (RequiresTwoFactor set, nothing else populated).
type LoginResult struct {
	Token             string
	ExpiresAt         time.Time
	Session           *domain.Session
	Principal         *domain.Principal
	RequiresTwoFactor bool
}

// AuthContext is the authenticated caller of a request.
type AuthContext struct {
	Principal domain.Principal
	Session   domain.Session
	Claims    domain.TokenClaims
}

// Introspection describes the caller behind a token.
type Introspection struct {
	Principal domain.Principal
	Session   domain.Session
	Role      domain.Role
}

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Directory   port.DirectoryRepository
	Writer      port.DirectoryWriter
	Credentials *CredentialVerifier
	Lockout     *LockoutTracker
	RateLimiter *RateLimiter
	TwoFactor   *TwoFactorVerifier
	Sessions    *SessionService
	Tokens      *TokenService
	Guard       *AuthorizationGuard
	Hasher      port.PasswordHasher
	Policy      port.PasswordPolicyValidator
	Publisher   port.EventPublisher
	Metrics     AuthMetrics
	Logger      *zap.Logger
	Tracer      trace.Tracer
}

// AuthService orchestrates login, logout and the session lifecycle.
type AuthService struct {
	directory   port.DirectoryRepository
	writer      port.DirectoryWriter
	credentials *CredentialVerifier
	lockout     *LockoutTracker
	limiter     *RateLimiter
	twoFactor   *TwoFactorVerifier
	sessions    *SessionService
	tokens      *TokenService
	guard       *AuthorizationGuard
	hasher      port.PasswordHasher
	policy      port.PasswordPolicyValidator
	publisher   port.EventPublisher
	metrics     AuthMetrics
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAuthService constructs an AuthService. RateLimiter, Writer, Policy and
// Publisher are optional.
func NewAuthService(deps AuthDependencies) (*AuthService, error) {
	switch {
	case deps.Directory == nil:
		return nil, fmt.Errorf("auth service: directory is required")
	case deps.Credentials == nil:
		return nil, fmt.Errorf("auth service: credential verifier is required")
	case deps.Lockout == nil:
		return nil, fmt.Errorf("auth service: lockout tracker is required")
	case deps.TwoFactor == nil:
		return nil, fmt.Errorf("auth service: two-factor verifier is required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("auth service: session service is required")
	case deps.Tokens == nil:
		return nil, fmt.Errorf("auth service: token service is required")
	case deps.Guard == nil:
		return nil, fmt.Errorf("auth service: authorization guard is required")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	policy := deps.Policy
	if policy == nil {
		policy = security.DefaultPasswordPolicy()
	}
	return &AuthService{
		directory:   deps.Directory,
		writer:      deps.Writer,
		credentials: deps.Credentials,
		lockout:     deps.Lockout,
		limiter:     deps.RateLimiter,
		twoFactor:   deps.TwoFactor,
		sessions:    deps.Sessions,
		tokens:      deps.Tokens,
		guard:       deps.Guard,
		hasher:      deps.Hasher,
		policy:      policy,
		publisher:   deps.Publisher,
		metrics:     metricsOrNop(deps.Metrics),
		logger:      log,
		tracer:      tracer,
		now:         time.Now,
	}, nil
}

// WithClock overrides the time source, primarily for tests.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Guard exposes the authorization guard for transport middleware.
func (s *AuthService) Guard() *AuthorizationGuard {
	return s.guard
}

// RateLimiter exposes the rate limiter for transport middleware. It may be nil.
func (s *AuthService) RateLimiter() *RateLimiter {
	return s.limiter
}

// Login runs rate check, lockout check, credential check, the optional second
// factor, session creation and token issuance, stopping at the first denial.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	result, err := s.login(ctx, req)
	switch {
	case err != nil:
		kind := FailureKindOf(err)
		s.metrics.ObserveLogin(string(kind))
		span.SetAttributes(attribute.String("auth.failure", string(kind)))
		span.SetStatus(codes.Error, string(kind))
		if kind == domain.FailureInternal {
			span.RecordError(err)
		}
	case result.RequiresTwoFactor:
		s.metrics.ObserveLogin(string(domain.FailureTwoFactorRequired))
	default:
		s.metrics.ObserveLogin(LoginOutcomeSuccess)
		span.SetAttributes(attribute.String("auth.admin_user_id", result.Principal.AdminUserID))
	}
	return result, err
}

func (s *AuthService) login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if s.limiter != nil {
		if _, err := s.limiter.Allow(ctx, domain.RateLimitTierAuth, req.Client.IP); err != nil {
			return nil, err
		}
	}

	email := strings.TrimSpace(req.Email)
	if err := validateCredentialsInput(email, req.Password); err != nil {
		return nil, err
	}

	keys := []string{LockoutKeyForEmail(email), LockoutKeyForOrigin(req.Client.IP)}
	if err := s.checkLockout(ctx, keys); err != nil {
		return nil, err
	}

	principal, err := s.credentials.Verify(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("login rejected",
				append(clientFields(req.Client), zap.String("email", logger.MaskEmail(email)))...,
			)
			if lerr := s.recordFailure(ctx, keys); lerr != nil {
				return nil, lerr
			}
		}
		return nil, err
	}

	if s.twoFactor.Required(*principal) {
		if strings.TrimSpace(req.TwoFactorCode) == "" {
			return &LoginResult{RequiresTwoFactor: true}, nil
		}
		if err := s.twoFactor.Verify(ctx, *principal, req.TwoFactorCode); err != nil {
			if errors.Is(err, ErrInvalidTwoFactorCode) {
				if lerr := s.recordFailure(ctx, keys); lerr != nil {
					return nil, lerr
				}
			}
			return nil, err
		}
	}

	for _, key := range keys {
		if err := s.lockout.RecordSuccess(ctx, key); err != nil {
			return nil, err
		}
	}

	session, err := s.sessions.Create(ctx, principal.AdminUserID, req.Client)
	if err != nil {
		return nil, err
	}
	issued, err := s.tokens.Issue(principal.AdminUserID, session.ID, session.ExpiresAt)
	if err != nil {
		if _, derr := s.sessions.Destroy(ctx, session.ID, domain.RevokeReasonLogout); derr != nil {
			s.logger.Warn("discard session after token failure", zap.Error(derr))
		}
		return nil, err
	}

	s.logger.Info("admin logged in",
		append(clientFields(req.Client), zap.String("admin_user_id", principal.AdminUserID))...,
	)
	return &LoginResult{
		Token:     issued.Token,
		ExpiresAt: issued.Claims.ExpiresAt,
		Session:   session,
		Principal: principal,
	}, nil
}

func (s *AuthService) checkLockout(ctx context.Context, keys []string) error {
	var retryAfter time.Duration
	locked := false
	now := s.now()
	for _, key := range keys {
		status, err := s.lockout.Status(ctx, key)
		if err != nil {
			return err
		}
		if status.Locked {
			locked = true
			if d := status.RetryAfter(now); d > retryAfter {
				retryAfter = d
			}
		}
	}
	if locked {
		return &AccountLockedError{RetryAfter: retryAfter}
	}
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, keys []string) error {
	for _, key := range keys {
		status, err := s.lockout.RecordFailure(ctx, key)
		if err != nil {
			return err
		}
		if !status.Locked || status.FailedCount != s.lockout.Threshold()+1 {
			continue
		}
		s.metrics.ObserveLockout()
		s.logger.Warn("login key locked",
			zap.String("key", logger.MaskLockoutKey(key)),
			zap.Int("failed_count", status.FailedCount),
			zap.Time("locked_until", status.LockedUntil),
		)
		if s.publisher != nil {
			event := domain.LoginLockedEvent{
				EventID:     uuid.NewString(),
				LockoutKey:  key,
				FailedCount: status.FailedCount,
				LockedAt:    s.now().UTC(),
				LockedUntil: status.LockedUntil,
			}
			if perr := s.publisher.PublishLoginLocked(ctx, event); perr != nil {
				s.logger.Warn("publish login locked", zap.Error(perr))
			}
		}
	}
	return nil
}

// Authenticate resolves a bearer token to its live session and active principal.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*AuthContext, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	auth, err := s.authenticate(ctx, raw)
	if err != nil {
		span.SetStatus(codes.Error, string(FailureKindOf(err)))
	}
	return auth, err
}

func (s *AuthService) authenticate(ctx context.Context, raw string) (*AuthContext, error) {
	claims, err := s.tokens.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session.AdminUserID != claims.AdminUserID {
		return nil, fmt.Errorf("%w: session bound to another admin", ErrInvalidToken)
	}

	principal, err := s.loadPrincipal(ctx, claims.AdminUserID)
	if err != nil {
		if errors.Is(err, ErrAccountDeactivated) {
			if _, derr := s.sessions.DestroyAllForAdmin(ctx, claims.AdminUserID, domain.RevokeReasonDeactivated, "system"); derr != nil {
				s.logger.Warn("destroy sessions of deactivated admin", zap.Error(derr))
			}
		}
		return nil, err
	}
	return &AuthContext{Principal: *principal, Session: *session, Claims: *claims}, nil
}

func (s *AuthService) loadPrincipal(ctx context.Context, adminUserID string) (*domain.Principal, error) {
	admin, err := s.directory.FindAdminUserByID(ctx, adminUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountDeactivated
		}
		return nil, fmt.Errorf("lookup admin user: %w", err)
	}
	user, err := s.directory.FindUserByID(ctx, admin.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountDeactivated
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	principal := domain.NewPrincipal(*user, *admin)
	if !principal.IsActive {
		return nil, ErrAccountDeactivated
	}
	return &principal, nil
}

// Introspect authenticates the token and resolves the caller's current role.
func (s *AuthService) Introspect(ctx context.Context, raw string) (*Introspection, error) {
	auth, err := s.Authenticate(ctx, raw)
	if err != nil {
		return nil, err
	}
	role, err := s.guard.ResolveRole(ctx, auth.Principal)
	if err != nil {
		return nil, err
	}
	return &Introspection{Principal: auth.Principal, Session: auth.Session, Role: *role}, nil
}

// Logout destroys the session bound to the token and revokes the token itself.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	claims, err := s.tokens.Validate(ctx, raw)
	if err != nil {
		return err
	}
	removed, err := s.sessions.Destroy(ctx, claims.SessionID, domain.RevokeReasonLogout)
	if err != nil {
		return err
	}
	if rerr := s.tokens.Revoke(ctx, *claims); rerr != nil {
		s.logger.Warn("revoke token on logout", zap.Error(rerr))
	}
	if !removed {
		return ErrSessionExpired
	}
	return nil
}

// LogoutAll destroys every session of the caller.
func (s *AuthService) LogoutAll(ctx context.Context, auth AuthContext) (int, error) {
	count, err := s.sessions.DestroyAllForAdmin(ctx, auth.Principal.AdminUserID, domain.RevokeReasonLogoutAll, auth.Principal.AdminUserID)
	if err != nil {
		return 0, err
	}
	if rerr := s.tokens.Revoke(ctx, auth.Claims); rerr != nil {
		s.logger.Warn("revoke token on logout-all", zap.Error(rerr))
	}
	return count, nil
}

// ListSessions returns the caller's live sessions.
func (s *AuthService) ListSessions(ctx context.Context, auth AuthContext) ([]domain.Session, error) {
	return s.sessions.ListForAdmin(ctx, auth.Principal.AdminUserID)
}

// ChangePassword replaces the caller's password and ends all of their sessions.
func (s *AuthService) ChangePassword(ctx context.Context, auth AuthContext, currentPassword, newPassword string) (int, error) {
	if s.writer == nil || s.hasher == nil {
		return 0, ErrDirectoryReadOnly
	}
	if currentPassword == "" {
		return 0, newValidationError("current_password", "current password is required")
	}
	if newPassword == "" {
		return 0, newValidationError("new_password", "new password is required")
	}
	if currentPassword == newPassword {
		return 0, newValidationError("new_password", "new password must differ from the current one")
	}

	user, err := s.credentials.VerifyPassword(ctx, auth.Principal.UserID, currentPassword)
	if err != nil {
		return 0, err
	}
	if err := s.policy.Validate(newPassword, user.Email); err != nil {
		var pve *security.PasswordValidationError
		if errors.As(err, &pve) {
			return 0, newValidationError("new_password", pve.Error())
		}
		return 0, newValidationError("new_password", err.Error())
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	if err := s.writer.UpdatePassword(ctx, user.ID, hash, s.now().UTC()); err != nil {
		return 0, fmt.Errorf("update password: %w", err)
	}

	return s.sessions.DestroyAllForAdmin(ctx, auth.Principal.AdminUserID, domain.RevokeReasonPasswordChanged, auth.Principal.AdminUserID)
}

// DeactivateAdmin marks another admin inactive and ends all of their sessions.
// The caller's authorization is checked by the transport layer.
func (s *AuthService) DeactivateAdmin(ctx context.Context, actor AuthContext, targetAdminUserID string) (int, error) {
	targetAdminUserID = strings.TrimSpace(targetAdminUserID)
	if targetAdminUserID == "" {
		return 0, newValidationError("admin_user_id", "admin user id is required")
	}
	if targetAdminUserID == actor.Principal.AdminUserID {
		return 0, newValidationError("admin_user_id", "admins cannot deactivate themselves")
	}
	if s.writer == nil {
		return 0, ErrDirectoryReadOnly
	}
	if err := s.writer.SetAdminActive(ctx, targetAdminUserID, false, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, newValidationError("admin_user_id", "admin user not found")
		}
		return 0, fmt.Errorf("deactivate admin: %w", err)
	}
	return s.sessions.DestroyAllForAdmin(ctx, targetAdminUserID, domain.RevokeReasonDeactivated, actor.Principal.AdminUserID)
}

// HandleDirectoryEvent reacts to directory changes made outside this service.
func (s *AuthService) HandleDirectoryEvent(ctx context.Context, event domain.DirectoryEvent) error {
	if strings.TrimSpace(event.AdminUserID) == "" {
		return newValidationError("admin_user_id", "admin user id is required")
	}
	triggeredBy := event.ChangedBy
	if triggeredBy == "" {
		triggeredBy = "directory"
	}

	var reason string
	switch event.Type {
	case domain.DirectoryEventPasswordChanged:
		reason = domain.RevokeReasonPasswordChanged
	case domain.DirectoryEventAccountDeactivated:
		reason = domain.RevokeReasonDeactivated
	case domain.DirectoryEventRoleChanged:
		// Roles are resolved on every check.
		s.logger.Info("admin role changed", zap.String("admin_user_id", event.AdminUserID))
		return nil
	default:
		s.logger.Debug("ignoring directory event", zap.String("type", string(event.Type)))
		return nil
	}

	_, err := s.sessions.DestroyAllForAdmin(ctx, event.AdminUserID, reason, triggeredBy)
	return err
}

// ClearLockout lifts a lockout on behalf of an operator.
func (s *AuthService) ClearLockout(ctx context.Context, actor AuthContext, key string) error {
	key = strings.TrimSpace(key)
	switch {
	case strings.HasPrefix(key, "email:"):
		key = LockoutKeyForEmail(strings.TrimPrefix(key, "email:"))
	case strings.HasPrefix(key, "ip:"):
		key = LockoutKeyForOrigin(strings.TrimPrefix(key, "ip:"))
	default:
		return newValidationError("key", "lockout key must start with email: or ip:")
	}
	if err := s.lockout.Clear(ctx, key); err != nil {
		return err
	}
	s.logger.Info("lockout cleared by operator",
		zap.String("key", logger.MaskLockoutKey(key)),
		zap.String("operator_admin_user_id", actor.Principal.AdminUserID),
	)
	return nil
}
