package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
)

func TestLogin_UnknownAndKnownEmailsFailIdentically(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, unknownErr := h.auth.Login(ctx, LoginRequest{Email: "nobody@x.com", Password: "wrong-password", Client: domain.ClientInfo{IP: "198.51.100.1"}})
	verifiesAfterUnknown := h.hasher.Verifies()
	_, knownErr := h.auth.Login(ctx, LoginRequest{Email: superAdminEmail, Password: "wrong-password", Client: domain.ClientInfo{IP: "198.51.100.2"}})
	_, inactiveErr := h.auth.Login(ctx, LoginRequest{Email: inactiveUserEmail, Password: testPassword, Client: domain.ClientInfo{IP: "198.51.100.3"}})

	for name, err := range map[string]error{"unknown": unknownErr, "known": knownErr, "inactive": inactiveErr} {
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s email: expected ErrInvalidCredentials, got %v", name, err)
		}
		if err.Error() != ErrInvalidCredentials.Error() {
			t.Fatalf("%s email: message leaks detail: %q", name, err.Error())
		}
	}
	if verifiesAfterUnknown != 1 {
		t.Fatalf("expected unknown email to run one hash comparison, got %d", verifiesAfterUnknown)
	}
	if got := h.hasher.Verifies(); got != 3 {
		t.Fatalf("expected one hash comparison per attempt, got %d", got)
	}
}

func TestLogin_LockoutAfterThresholdExceeded(t *testing.T) {
	h := newHarness(t, withLockoutThreshold(3))
	ctx := context.Background()
	client := domain.ClientInfo{IP: "198.51.100.9"}

	for i := 0; i < 4; i++ {
		_, err := h.auth.Login(ctx, LoginRequest{Email: superAdminEmail, Password: "wrong-password", Client: client})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	locked, err := h.lockout.IsLocked(ctx, LockoutKeyForEmail(superAdminEmail))
	if err != nil || !locked {
		t.Fatalf("expected email key to be locked, locked=%v err=%v", locked, err)
	}

	_, err = h.auth.Login(ctx, LoginRequest{Email: superAdminEmail, Password: testPassword, Client: domain.ClientInfo{IP: "192.0.2.50"}})
	var lockedErr *AccountLockedError
	if !errors.As(err, &lockedErr) {
		t.Fatalf("expected AccountLockedError even with correct password, got %v", err)
	}
	if lockedErr.RetryAfterSeconds() <= 0 {
		t.Fatalf("expected positive retry-after, got %d", lockedErr.RetryAfterSeconds())
	}
	if len(h.publisher.locked) != 2 {
		t.Fatalf("expected lock events for email and origin keys, got %d", len(h.publisher.locked))
	}

	h.clock.Advance(16 * time.Minute)
	result := h.login(t, superAdminEmail)
	if result.Session == nil {
		t.Fatalf("expected login to succeed after cool-down")
	}
}

func TestLogin_OperatorClearLiftsLockout(t *testing.T) {
	h := newHarness(t, withLockoutThreshold(1))
	ctx := context.Background()
	client := domain.ClientInfo{IP: "198.51.100.10"}

	for i := 0; i < 2; i++ {
		_, _ = h.auth.Login(ctx, LoginRequest{Email: readerAdminEmail, Password: "nope-nope", Client: client})
	}
	if _, err := h.auth.Login(ctx, LoginRequest{Email: readerAdminEmail, Password: testPassword, Client: client}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	operator := AuthContext{Principal: domain.Principal{AdminUserID: "admin-1"}}
	if err := h.auth.ClearLockout(ctx, operator, "email:READER@x.com"); err != nil {
		t.Fatalf("ClearLockout(email) returned error: %v", err)
	}
	if err := h.auth.ClearLockout(ctx, operator, "ip:"+client.IP); err != nil {
		t.Fatalf("ClearLockout(ip) returned error: %v", err)
	}
	if err := h.auth.ClearLockout(ctx, operator, "user:admin-2"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown key scope, got %v", err)
	}

	if _, err := h.auth.Login(ctx, LoginRequest{Email: readerAdminEmail, Password: testPassword, Client: client}); err != nil {
		t.Fatalf("expected login after operator clear, got %v", err)
	}
}

func TestLogin_SuccessClearsFailureStreak(t *testing.T) {
	h := newHarness(t, withLockoutThreshold(2))
	ctx := context.Background()
	client := domain.ClientInfo{IP: "198.51.100.11"}

	for i := 0; i < 2; i++ {
		_, _ = h.auth.Login(ctx, LoginRequest{Email: superAdminEmail, Password: "wrong-password", Client: client})
	}
	if _, err := h.auth.Login(ctx, LoginRequest{Email: superAdminEmail, Password: testPassword, Client: client}); err != nil {
		t.Fatalf("expected success below threshold, got %v", err)
	}
	status, err := h.lockout.Status(ctx, LockoutKeyForEmail(superAdminEmail))
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.FailedCount != 0 {
		t.Fatalf("expected streak cleared, got %d", status.FailedCount)
	}
}

func TestLogin_RateLimitedAfterMaxAuthRequests(t *testing.T) {
	h := newHarness(t, withAuthTier(5))
	ctx := context.Background()
	client := domain.ClientInfo{IP: "198.51.100.20"}

	var err error
	for i := 0; i < 6; i++ {
		_, err = h.auth.Login(ctx, LoginRequest{Email: superAdminEmail, Password: "wrong-password", Client: client})
	}
	var rateErr *RateLimitExceededError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected 6th attempt to be rate limited, got %v", err)
	}
	if rateErr.Tier != domain.RateLimitTierAuth || rateErr.RetryAfterSeconds() <= 0 {
		t.Fatalf("unexpected rate limit error: %+v", rateErr)
	}
	if FailureKindOf(err) != domain.FailureRateLimited {
		t.Fatalf("expected RateLimited kind, got %s", FailureKindOf(err))
	}

	if _, err := h.auth.Login(ctx, LoginRequest{Email: superAdminEmail, Password: testPassword, Client: domain.ClientInfo{IP: "198.51.100.21"}}); err != nil {
		t.Fatalf("other origins must not share the window: %v", err)
	}
}

func TestLogin_TwoFactorNeverIssuesTokenWithoutValidCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client := domain.ClientInfo{IP: "198.51.100.30"}

	result, err := h.auth.Login(ctx, LoginRequest{Email: totpAdminEmail, Password: testPassword, Client: client})
	if err != nil {
		t.Fatalf("expected two-factor challenge, got %v", err)
	}
	if !result.RequiresTwoFactor || result.Token != "" || result.Session != nil || result.Principal != nil {
		t.Fatalf("expected bare two-factor challenge, got %+v", result)
	}
	if h.sessions.Len() != 0 {
		t.Fatalf("no session may exist before the second factor")
	}

	for _, code := range []string{"12345", "abcdef", "1234567", " ", "000000"} {
		result, err := h.auth.Login(ctx, LoginRequest{Email: totpAdminEmail, Password: testPassword, TwoFactorCode: code, Client: client})
		if code == " " {
			if err != nil || !result.RequiresTwoFactor {
				t.Fatalf("blank code should re-issue the challenge, got %+v %v", result, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidTwoFactorCode) || result != nil {
			t.Fatalf("code %q: expected ErrInvalidTwoFactorCode, got %+v %v", code, result, err)
		}
	}

	code, err := totp.GenerateCode(h.totpSecret, h.clock.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	result, err = h.auth.Login(ctx, LoginRequest{Email: totpAdminEmail, Password: testPassword, TwoFactorCode: code, Client: client})
	if err != nil || result.Token == "" {
		t.Fatalf("expected token with valid code, got %+v %v", result, err)
	}

	if _, err := h.auth.Login(ctx, LoginRequest{Email: totpAdminEmail, Password: testPassword, TwoFactorCode: code, Client: client}); !errors.Is(err, ErrInvalidTwoFactorCode) {
		t.Fatalf("expected replayed code to be rejected, got %v", err)
	}
}

func TestIntrospectLogoutScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result := h.login(t, superAdminEmail)
	info, err := h.auth.Introspect(ctx, result.Token)
	if err != nil {
		t.Fatalf("Introspect returned error: %v", err)
	}
	if info.Principal.AdminUserID != "admin-1" || info.Principal.Email != superAdminEmail || info.Role.Name != "super_admin" {
		t.Fatalf("unexpected introspection: %+v", info)
	}

	if err := h.auth.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	_, err = h.auth.Introspect(ctx, result.Token)
	if kind := FailureKindOf(err); kind != domain.FailureInvalidToken && kind != domain.FailureSessionExpired {
		t.Fatalf("expected InvalidToken or SessionExpired after logout, got %v", err)
	}
	if len(h.publisher.revoked) != 1 || h.publisher.revoked[0].Reason != domain.RevokeReasonLogout {
		t.Fatalf("expected one logout revocation event, got %+v", h.publisher.revoked)
	}
}

func TestAuthenticate_SessionDestroyedBeforeTokenExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result := h.login(t, superAdminEmail)
	if _, err := h.auth.Authenticate(ctx, result.Token); err != nil {
		t.Fatalf("fresh token must authenticate: %v", err)
	}
	if _, err := h.sessionSvc.Destroy(ctx, result.Session.ID, domain.RevokeReasonLogout); err != nil {
		t.Fatalf("Destroy returned error: %v", err)
	}
	if _, err := h.auth.Authenticate(ctx, result.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestAuthenticate_DeactivationTakesEffectImmediately(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	target := h.login(t, readerAdminEmail)
	actor := h.login(t, superAdminEmail)
	actorCtx, err := h.auth.Authenticate(ctx, actor.Token)
	if err != nil {
		t.Fatalf("Authenticate(actor) returned error: %v", err)
	}

	if _, err := h.auth.DeactivateAdmin(ctx, *actorCtx, "admin-1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected self-deactivation to be rejected, got %v", err)
	}
	revoked, err := h.auth.DeactivateAdmin(ctx, *actorCtx, "admin-2")
	if err != nil {
		t.Fatalf("DeactivateAdmin returned error: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected one revoked session, got %d", revoked)
	}
	if _, err := h.auth.Authenticate(ctx, target.Token); FailureKindOf(err) != domain.FailureSessionExpired {
		t.Fatalf("expected SessionExpired for deactivated admin token, got %v", err)
	}
	if _, err := h.auth.Login(ctx, LoginRequest{Email: readerAdminEmail, Password: testPassword, Client: domain.ClientInfo{IP: "192.0.2.1"}}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("deactivated admin must not log in, got %v", err)
	}
}

func TestAuthenticate_InactiveDirectoryRecordRevokesSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result := h.login(t, readerAdminEmail)
	if err := h.directory.SetAdminActive(ctx, "admin-2", false, h.clock.Now()); err != nil {
		t.Fatalf("SetAdminActive returned error: %v", err)
	}
	if _, err := h.auth.Authenticate(ctx, result.Token); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
	if h.sessions.Len() != 0 {
		t.Fatalf("expected sessions of deactivated admin to be destroyed")
	}
}

func TestLogoutAll_InvalidatesEveryToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.login(t, superAdminEmail)
	second := h.login(t, superAdminEmail)
	other := h.login(t, readerAdminEmail)

	authCtx, err := h.auth.Authenticate(ctx, first.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	sessions, err := h.auth.ListSessions(ctx, *authCtx)
	if err != nil || len(sessions) != 2 {
		t.Fatalf("expected two sessions, got %d (err=%v)", len(sessions), err)
	}

	count, err := h.auth.LogoutAll(ctx, *authCtx)
	if err != nil || count != 2 {
		t.Fatalf("expected two sessions revoked, got %d (err=%v)", count, err)
	}
	for _, token := range []string{first.Token, second.Token} {
		if _, err := h.auth.Authenticate(ctx, token); err == nil {
			t.Fatalf("expected token to be rejected after logout-all")
		}
	}
	if _, err := h.auth.Authenticate(ctx, other.Token); err != nil {
		t.Fatalf("other admins must keep their sessions: %v", err)
	}
	if len(h.publisher.invalidated) != 1 || h.publisher.invalidated[0].SessionsRevoked != 2 {
		t.Fatalf("expected one invalidation event, got %+v", h.publisher.invalidated)
	}
}

func TestChangePassword_RevokesSessionsAndRotatesCredential(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result := h.login(t, superAdminEmail)
	authCtx, err := h.auth.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	if _, err := h.auth.ChangePassword(ctx, *authCtx, "wrong-current", "Str0ng!Passphrase#2026"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}
	if _, err := h.auth.ChangePassword(ctx, *authCtx, testPassword, "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for weak password, got %v", err)
	}

	newPassword := "Str0ng!Passphrase#2026"
	revoked, err := h.auth.ChangePassword(ctx, *authCtx, testPassword, newPassword)
	if err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected one revoked session, got %d", revoked)
	}
	if _, err := h.auth.Authenticate(ctx, result.Token); err == nil {
		t.Fatalf("expected old token to be rejected after password change")
	}

	client := domain.ClientInfo{IP: "192.0.2.99"}
	if _, err := h.auth.Login(ctx, LoginRequest{Email: superAdminEmail, Password: testPassword, Client: client}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := h.auth.Login(ctx, LoginRequest{Email: superAdminEmail, Password: newPassword, Client: client}); err != nil {
		t.Fatalf("new password must work, got %v", err)
	}
}

func TestHandleDirectoryEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result := h.login(t, superAdminEmail)
	if err := h.auth.HandleDirectoryEvent(ctx, domain.DirectoryEvent{Type: domain.DirectoryEventRoleChanged, AdminUserID: "admin-1"}); err != nil {
		t.Fatalf("role change returned error: %v", err)
	}
	if _, err := h.auth.Authenticate(ctx, result.Token); err != nil {
		t.Fatalf("role change must not revoke sessions: %v", err)
	}

	if err := h.auth.HandleDirectoryEvent(ctx, domain.DirectoryEvent{Type: domain.DirectoryEventPasswordChanged, AdminUserID: "admin-1", ChangedBy: "helpdesk"}); err != nil {
		t.Fatalf("password change returned error: %v", err)
	}
	if _, err := h.auth.Authenticate(ctx, result.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after external password change, got %v", err)
	}
	last := h.publisher.invalidated[len(h.publisher.invalidated)-1]
	if last.Reason != domain.RevokeReasonPasswordChanged || last.TriggeredBy != "helpdesk" {
		t.Fatalf("unexpected invalidation event: %+v", last)
	}

	if err := h.auth.HandleDirectoryEvent(ctx, domain.DirectoryEvent{Type: domain.DirectoryEventAccountDeactivated}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without admin id, got %v", err)
	}
}

func TestAuthorization_ReaderCannotManageAdmins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result := h.login(t, readerAdminEmail)
	authCtx, err := h.auth.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if err := h.guard.RequirePermission(ctx, authCtx.Principal, "users:read"); err != nil {
		t.Fatalf("expected users:read to be granted, got %v", err)
	}
	err = h.guard.RequirePermission(ctx, authCtx.Principal, "admin:manage")
	if FailureKindOf(err) != domain.FailureInsufficientPermissions {
		t.Fatalf("expected InsufficientPermissions, got %v", err)
	}
}
