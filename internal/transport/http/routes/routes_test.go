package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/app"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/config"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/security"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository/memory"
	httproutes "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/routes"
)

const (
	superEmail  = "login@x.com"
	readerEmail = "reader@x.com"
	totpEmail   = "totp@x.com"
	password    = "Password123"
)

type testServer struct {
	engine    *gin.Engine
	directory *memory.Directory
}

func newTestServer(t *testing.T, mutate ...func(*config.AppConfig)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Defaults()
	if err != nil {
		t.Fatalf("config.Defaults: %v", err)
	}
	cfg.App.Env = "test"
	cfg.Argon2 = config.Argon2Settings{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	for _, fn := range mutate {
		fn(cfg)
	}

	log := zaptest.NewLogger(t)
	hasher, err := app.NewArgon2Hasher(cfg.Argon2)
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}

	secret, _, err := security.GenerateTOTPSecret("Admin Console", totpEmail)
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}

	dir := memory.NewDirectory()
	_, err = app.ApplySeed(dir, app.SeedFile{
		Roles: []app.SeedRole{
			{ID: "role-super", Name: "super_admin", Permissions: []string{domain.PermissionWildcard}, Level: 100},
			{ID: "role-reader", Name: "reader", Permissions: []string{"users:read"}, Level: 1},
		},
		Admins: []app.SeedAdmin{
			{Email: superEmail, Password: password, RoleID: "role-super"},
			{Email: readerEmail, Password: password, RoleID: "role-reader"},
			{Email: totpEmail, Password: password, RoleID: "role-super", TwoFactorSecret: secret},
		},
	}, hasher, log)
	if err != nil {
		t.Fatalf("ApplySeed: %v", err)
	}

	keys, err := security.NewEphemeralKeyProvider("routes-test")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider: %v", err)
	}
	stack, err := app.NewAuthStack(cfg, dir, app.NewMemoryStores(), app.AuthOptions{Logger: log, Keys: keys, Hasher: hasher})
	if err != nil {
		t.Fatalf("NewAuthStack: %v", err)
	}

	engine, err := httproutes.Register(httproutes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Auth:     stack.Auth,
		KeySet:   stack.JWT,
		Gatherer: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return &testServer{engine: engine, directory: dir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return s.doWithHeaders(t, method, path, token, body, nil)
}

func (s *testServer) doWithHeaders(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, rr.Code, rr.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	decode(t, rr, &body)
	if body.Token == "" {
		t.Fatalf("login %s: missing token", email)
	}
	return body.Token
}

func (s *testServer) adminID(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	user, err := s.directory.FindUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	admin, err := s.directory.FindAdminUserByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindAdminUserByUserID: %v", err)
	}
	return admin.ID
}

type errorBody struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	RetryAfter *int   `json:"retry_after"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, kind string) errorBody {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	var body errorBody
	decode(t, rr, &body)
	if body.Success || body.Error != kind || body.Timestamp == "" || body.Message == "" {
		t.Fatalf("unexpected envelope %+v, want error %s", body, kind)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r, err := httproutes.Register(httproutes.Dependencies{
		Config:   cfg,
		Logger:   zaptest.NewLogger(t),
		Gatherer: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, w.Code)
		}
	}
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r, err := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: zaptest.NewLogger(t),
		Cache:  failingCache{},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("readiness body leaked dependency error: %s", w.Body.String())
	}
}

type failingCache struct{}

func (failingCache) HealthCheck(context.Context) error {
	return errors.New("dial tcp: connection refused")
}

func TestLoginIntrospectLogoutScenario(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, superEmail)

	rr := srv.do(t, http.MethodGet, "/api/v1/auth/session", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("introspect: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var info struct {
		Admin struct {
			Email string `json:"email"`
		} `json:"admin"`
		Permissions []string `json:"permissions"`
	}
	decode(t, rr, &info)
	if info.Admin.Email != superEmail || len(info.Permissions) != 1 || info.Permissions[0] != domain.PermissionWildcard {
		t.Fatalf("unexpected introspection %+v", info)
	}

	rr = srv.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = srv.do(t, http.MethodGet, "/api/v1/auth/session", token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("introspect after logout: expected 401, got %d", rr.Code)
	}
	var body errorBody
	decode(t, rr, &body)
	if body.Error != string(domain.FailureInvalidToken) && body.Error != string(domain.FailureSessionExpired) {
		t.Fatalf("unexpected error kind %q", body.Error)
	}
}

func TestRapidFailedLoginsAreRateLimited(t *testing.T) {
	srv := newTestServer(t)
	creds := map[string]string{"email": superEmail, "password": "wrong-password"}

	for i := 1; i <= 5; i++ {
		rr := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
		expectError(t, rr, http.StatusUnauthorized, string(domain.FailureInvalidCredentials))
	}

	rr := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	body := expectError(t, rr, http.StatusTooManyRequests, string(domain.FailureRateLimited))
	if body.RetryAfter == nil || *body.RetryAfter <= 0 {
		t.Fatalf("expected retry_after in body, got %+v", body)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestForwardedForFromUntrustedPeerIsIgnored(t *testing.T) {
	srv := newTestServer(t)

	for i := 1; i <= 5; i++ {
		creds := map[string]string{"email": fmt.Sprintf("spray%d@x.com", i), "password": "wrong-password"}
		rr := srv.doWithHeaders(t, http.MethodPost, "/api/v1/auth/login", "", creds,
			map[string]string{"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i)})
		expectError(t, rr, http.StatusUnauthorized, string(domain.FailureInvalidCredentials))
	}

	creds := map[string]string{"email": "spray6@x.com", "password": "wrong-password"}
	rr := srv.doWithHeaders(t, http.MethodPost, "/api/v1/auth/login", "", creds,
		map[string]string{"X-Forwarded-For": "10.0.0.6"})
	expectError(t, rr, http.StatusTooManyRequests, string(domain.FailureRateLimited))
}

func TestForwardedForFromTrustedProxyKeysByClient(t *testing.T) {
	// httptest requests arrive from 192.0.2.1.
	srv := newTestServer(t, func(cfg *config.AppConfig) { cfg.App.TrustedProxies = []string{"192.0.2.0/24"} })

	for i := 1; i <= 6; i++ {
		creds := map[string]string{"email": fmt.Sprintf("spray%d@x.com", i), "password": "wrong-password"}
		rr := srv.doWithHeaders(t, http.MethodPost, "/api/v1/auth/login", "", creds,
			map[string]string{"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i)})
		expectError(t, rr, http.StatusUnauthorized, string(domain.FailureInvalidCredentials))
	}
}

func TestRegisterRejectsInvalidTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test", TrustedProxies: []string{"not-an-ip"}}}

	if _, err := httproutes.Register(httproutes.Dependencies{Config: cfg, Logger: zaptest.NewLogger(t)}); err == nil {
		t.Fatalf("expected error for invalid trusted proxy")
	}
}

func TestUnknownAndKnownEmailFailIdentically(t *testing.T) {
	srv := newTestServer(t)

	unknown := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "nobody@x.com", "password": password})
	known := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": superEmail, "password": "not-the-password"})

	a := expectError(t, unknown, http.StatusUnauthorized, string(domain.FailureInvalidCredentials))
	b := expectError(t, known, http.StatusUnauthorized, string(domain.FailureInvalidCredentials))
	if a.Message != b.Message {
		t.Fatalf("messages differ: %q vs %q", a.Message, b.Message)
	}
}

func TestTwoFactorLoginWithoutCodeReturnsNoToken(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": totpEmail, "password": password})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Success           bool   `json:"success"`
		RequiresTwoFactor bool   `json:"requires_two_factor"`
		Token             string `json:"token"`
	}
	decode(t, rr, &body)
	if !body.Success || !body.RequiresTwoFactor || body.Token != "" {
		t.Fatalf("unexpected two-factor challenge %+v", body)
	}

	rr = srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": totpEmail, "password": password, "two_factor_code": "000000x"})
	expectError(t, rr, http.StatusUnauthorized, string(domain.FailureInvalidTwoFactorCode))
}

func TestMissingBearerIsInvalidToken(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/api/v1/auth/sessions", "", nil)
	expectError(t, rr, http.StatusUnauthorized, string(domain.FailureInvalidToken))

	rr = srv.do(t, http.MethodGet, "/api/v1/auth/sessions", "not-a-jwt", nil)
	expectError(t, rr, http.StatusUnauthorized, string(domain.FailureInvalidToken))
}

func TestReaderRoleCannotManageAdmins(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, readerEmail)
	target := srv.adminID(t, superEmail)

	rr := srv.do(t, http.MethodPost, "/api/v1/admin/users/"+target+"/deactivate", token, nil)
	expectError(t, rr, http.StatusForbidden, string(domain.FailureInsufficientPermissions))

	rr = srv.do(t, http.MethodDelete, "/api/v1/admin/lockouts/email:"+superEmail, token, nil)
	expectError(t, rr, http.StatusForbidden, string(domain.FailureInsufficientPermissions))
}

func TestDeactivateEndsTargetSessions(t *testing.T) {
	srv := newTestServer(t)
	superToken := srv.login(t, superEmail)
	readerToken := srv.login(t, readerEmail)

	rr := srv.do(t, http.MethodPost, "/api/v1/admin/users/"+srv.adminID(t, readerEmail)+"/deactivate", superToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		RevokedSessions int `json:"revoked_sessions"`
	}
	decode(t, rr, &body)
	if body.RevokedSessions != 1 {
		t.Fatalf("expected 1 revoked session, got %d", body.RevokedSessions)
	}

	rr = srv.do(t, http.MethodGet, "/api/v1/auth/session", readerToken, nil)
	if rr.Code != http.StatusUnauthorized && rr.Code != http.StatusForbidden {
		t.Fatalf("expected deactivated admin to be rejected, got %d", rr.Code)
	}

	rr = srv.do(t, http.MethodPost, "/api/v1/admin/users/"+srv.adminID(t, superEmail)+"/deactivate", superToken, nil)
	expectError(t, rr, http.StatusBadRequest, string(domain.FailureValidationError))
}

func TestLogoutAllEndsEverySession(t *testing.T) {
	srv := newTestServer(t)
	first := srv.login(t, superEmail)
	second := srv.login(t, superEmail)

	rr := srv.do(t, http.MethodGet, "/api/v1/auth/sessions", first, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list sessions: expected 200, got %d", rr.Code)
	}
	var list struct {
		Sessions []struct {
			ID      string `json:"id"`
			Current bool   `json:"current"`
		} `json:"sessions"`
	}
	decode(t, rr, &list)
	if len(list.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list.Sessions))
	}

	rr = srv.do(t, http.MethodPost, "/api/v1/auth/logout-all", second, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout-all: expected 200, got %d", rr.Code)
	}

	for _, token := range []string{first, second} {
		rr = srv.do(t, http.MethodGet, "/api/v1/auth/sessions", token, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 after logout-all, got %d", rr.Code)
		}
	}
}

func TestChangePasswordRequiresFreshLogin(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, superEmail)
	newPassword := "Quartz-Harbor-91-Lantern"

	rr := srv.do(t, http.MethodPost, "/api/v1/auth/change-password", token, map[string]string{
		"current_password": password,
		"new_password":     newPassword,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("change-password: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = srv.do(t, http.MethodGet, "/api/v1/auth/session", token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected old token to fail, got %d", rr.Code)
	}

	rr = srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": superEmail, "password": newPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", rr.Code)
	}
}

func TestClearLockoutValidatesKey(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, superEmail)

	rr := srv.do(t, http.MethodDelete, "/api/v1/admin/lockouts/email:"+readerEmail, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear lockout: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = srv.do(t, http.MethodDelete, "/api/v1/admin/lockouts/bogus", token, nil)
	expectError(t, rr, http.StatusBadRequest, string(domain.FailureValidationError))
}

func TestOversizedBodyIsRejected(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.AppConfig) { cfg.App.MaxBodyBytes = 64 })

	rr := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    superEmail,
		"password": strings.Repeat("x", 256),
	})
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestJWKSEndpointPublishesSigningKey(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/.well-known/jwks.json", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "routes-test") {
		t.Fatalf("expected kid in jwks, got %s", rr.Body.String())
	}
}
