package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"go.uber.org/zap/zaptest"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/config"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/security"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository/memory"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatalf("config.Defaults: %v", err)
	}
	cfg.App.Env = "test"
	cfg.Argon2 = config.Argon2Settings{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	return cfg
}

func testHasher(t *testing.T, cfg *config.AppConfig) *security.Argon2Hasher {
	t.Helper()
	hasher, err := NewArgon2Hasher(cfg.Argon2)
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}
	return hasher
}

func TestApplySeedNormalisesEmailsAndHashes(t *testing.T) {
	cfg := testConfig(t)
	hasher := testHasher(t, cfg)
	dir := memory.NewDirectory()

	n, err := ApplySeed(dir, SeedFile{
		Roles:  []SeedRole{{ID: "r1", Name: "ops", Permissions: []string{"users:read"}, Level: 5}},
		Admins: []SeedAdmin{{Email: "  Ops@Example.COM ", Password: "Password123", RoleID: "r1", Inactive: true}},
	}, hasher, zaptest.NewLogger(t))
	if err != nil || n != 1 {
		t.Fatalf("ApplySeed = (%d, %v)", n, err)
	}

	ctx := context.Background()
	user, err := dir.FindUserByEmail(ctx, "ops@example.com")
	if err != nil {
		t.Fatalf("seeded user not found: %v", err)
	}
	if user.PasswordHash == "Password123" {
		t.Fatalf("password stored in clear")
	}
	if ok, err := hasher.Verify("Password123", user.PasswordHash); err != nil || !ok {
		t.Fatalf("seeded hash does not verify: %v", err)
	}
	admin, err := dir.FindAdminUserByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("admin profile missing: %v", err)
	}
	if admin.IsActive {
		t.Fatalf("inactive seed admin must not be active")
	}
}

func TestApplySeedProvisionsTwoFactor(t *testing.T) {
	cfg := testConfig(t)
	hasher := testHasher(t, cfg)
	dir := memory.NewDirectory()

	_, err := ApplySeed(dir, SeedFile{
		Roles:  []SeedRole{{ID: "r1", Name: "ops", Permissions: []string{"users:read"}, Level: 5}},
		Admins: []SeedAdmin{{Email: "otp@x.com", Password: "Password123", RoleID: "r1", ProvisionTwoFactor: true}},
	}, hasher, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("ApplySeed: %v", err)
	}

	ctx := context.Background()
	user, err := dir.FindUserByEmail(ctx, "otp@x.com")
	if err != nil {
		t.Fatalf("seeded user not found: %v", err)
	}
	admin, err := dir.FindAdminUserByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("admin profile missing: %v", err)
	}
	if !admin.TwoFactorEnabled || admin.TwoFactorSecret == nil || *admin.TwoFactorSecret == "" {
		t.Fatalf("expected provisioned two-factor, got %+v", admin)
	}

	now := time.Now()
	code, err := totp.GenerateCode(*admin.TwoFactorSecret, now)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	validator := security.NewTOTPValidator(cfg.TwoFactor.Digits, cfg.TwoFactor.Period, cfg.TwoFactor.Skew)
	if ok, err := validator.Validate(code, *admin.TwoFactorSecret, now); err != nil || !ok {
		t.Fatalf("provisioned secret does not validate: ok=%v err=%v", ok, err)
	}
}

func TestSeedDirectoryRefusesProvisioningInProduction(t *testing.T) {
	cfg := testConfig(t)
	hasher := testHasher(t, cfg)
	cfg.App.Env = "production"

	path := filepath.Join(t.TempDir(), "seed.json")
	raw, _ := json.Marshal(SeedFile{
		Roles:  []SeedRole{{ID: "r1", Name: "root", Permissions: []string{"*"}, Level: 100}},
		Admins: []SeedAdmin{{Email: "root@x.com", Password: "Password123", RoleID: "r1", ProvisionTwoFactor: true}},
	})
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	cfg.Storage.SeedFile = path

	if _, err := seedDirectory(memory.NewDirectory(), cfg, hasher, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected provisioning to be refused in production")
	}
}

func TestSeedDirectorySources(t *testing.T) {
	cfg := testConfig(t)
	hasher := testHasher(t, cfg)
	log := zaptest.NewLogger(t)

	n, err := seedDirectory(memory.NewDirectory(), cfg, hasher, log)
	if err != nil || n != len(developmentSeed().Admins) {
		t.Fatalf("development seed = (%d, %v)", n, err)
	}

	cfg.App.Env = "production"
	n, err = seedDirectory(memory.NewDirectory(), cfg, hasher, log)
	if err != nil || n != 0 {
		t.Fatalf("production without seed file = (%d, %v)", n, err)
	}

	path := filepath.Join(t.TempDir(), "seed.json")
	raw, _ := json.Marshal(SeedFile{
		Roles:  []SeedRole{{ID: "r1", Name: "root", Permissions: []string{"*"}, Level: 100}},
		Admins: []SeedAdmin{{Email: "root@x.com", Password: "Password123", RoleID: "r1"}},
	})
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	cfg.Storage.SeedFile = path
	n, err = seedDirectory(memory.NewDirectory(), cfg, hasher, log)
	if err != nil || n != 1 {
		t.Fatalf("seed file = (%d, %v)", n, err)
	}

	cfg.Storage.SeedFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := seedDirectory(memory.NewDirectory(), cfg, hasher, log); err == nil {
		t.Fatalf("expected error for missing seed file")
	}
}

func TestMemoryStoresJanitorTasks(t *testing.T) {
	stores := NewMemoryStores()
	if stores.ActiveSessions == nil || stores.ActiveSessions() != 0 {
		t.Fatalf("expected empty session gauge")
	}
	for _, task := range stores.Prune {
		if _, err := task.Run(context.Background()); err != nil {
			t.Fatalf("task %s: %v", task.Name, err)
		}
	}
}

func TestNewAuthStackRequiresKeys(t *testing.T) {
	cfg := testConfig(t)
	if _, err := NewAuthStack(cfg, memory.NewDirectory(), NewMemoryStores(), AuthOptions{}); err == nil {
		t.Fatalf("expected error without key provider")
	}

	keys, err := security.NewEphemeralKeyProvider("app-test")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider: %v", err)
	}
	stack, err := NewAuthStack(cfg, memory.NewDirectory(), NewMemoryStores(), AuthOptions{Keys: keys})
	if err != nil {
		t.Fatalf("NewAuthStack: %v", err)
	}
	if stack.Auth.RateLimiter() == nil || stack.Sessions.TTL() != cfg.Session.TTL {
		t.Fatalf("auth stack not wired from configuration")
	}
}

func TestOpenDirectoryDefaultsToSeededMemory(t *testing.T) {
	cfg := testConfig(t)
	dir, pool, err := openDirectory(context.Background(), cfg, testHasher(t, cfg), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("openDirectory: %v", err)
	}
	if pool != nil {
		t.Fatalf("memory directory must not open a pool")
	}
	if _, err := dir.FindUserByEmail(context.Background(), "login@x.com"); err != nil {
		t.Fatalf("development admin missing: %v", err)
	}
}
