package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/config"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/logger"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/security"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository/memory"
)

// SeedFile is the on-disk format of storage.seed_file.
type SeedFile struct {
	Roles  []SeedRole  `json:"roles"`
	Admins []SeedAdmin `json:"admins"`
	// TwoFactorIssuer labels provisioned authenticator entries.
	TwoFactorIssuer string `json:"two_factor_issuer"`
}

type SeedRole struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Level       int      `json:"level"`
}

type SeedAdmin struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	RoleID          string `json:"role_id"`
	Inactive        bool   `json:"inactive"`
	TwoFactorSecret string `json:"two_factor_secret"`
	// ProvisionTwoFactor generates a fresh secret when TwoFactorSecret is empty.
	ProvisionTwoFactor bool `json:"provision_two_factor"`
}

const defaultTwoFactorIssuer = "Admin Console"

// developmentSeed is loaded into the in-memory directory outside production
// when no seed file is configured.
func developmentSeed() SeedFile {
	return SeedFile{
		Roles: []SeedRole{
			{ID: "role-super-admin", Name: "super_admin", Permissions: []string{domain.PermissionWildcard}, Level: 100},
			{ID: "role-security", Name: "security_officer", Permissions: []string{domain.PermissionSecurityManage, "users:read"}, Level: 50},
			{ID: "role-support", Name: "support", Permissions: []string{"users:read"}, Level: 1},
		},
		Admins: []SeedAdmin{
			{Email: "login@x.com", Password: "Password123", RoleID: "role-super-admin"},
			{Email: "support@x.com", Password: "Password123", RoleID: "role-support"},
			{Email: "totp@x.com", Password: "Password123", RoleID: "role-security", ProvisionTwoFactor: true},
		},
	}
}

func loadSeedFile(path string) (SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("decode seed file: %w", err)
	}
	return seed, nil
}

func seedDirectory(dir *memory.Directory, cfg *config.AppConfig, hasher port.PasswordHasher, log *zap.Logger) (int, error) {
	var seed SeedFile
	switch {
	case cfg.Storage.SeedFile != "":
		loaded, err := loadSeedFile(cfg.Storage.SeedFile)
		if err != nil {
			return 0, err
		}
		seed = loaded
	case cfg.App.Env != "production":
		seed = developmentSeed()
	default:
		log.Warn("in-memory directory has no seed file; no admin can log in")
		return 0, nil
	}
	if cfg.App.Env == "production" {
		for _, admin := range seed.Admins {
			if admin.ProvisionTwoFactor && admin.TwoFactorSecret == "" {
				return 0, fmt.Errorf("seed admin %s: provision_two_factor is not allowed in production", logger.MaskEmail(admin.Email))
			}
		}
	}
	if seed.TwoFactorIssuer == "" {
		seed.TwoFactorIssuer = cfg.TwoFactor.Issuer
	}
	return ApplySeed(dir, seed, hasher, log)
}

// ApplySeed hashes the seed passwords and loads roles and admins into dir.
func ApplySeed(dir *memory.Directory, seed SeedFile, hasher port.PasswordHasher, log *zap.Logger) (int, error) {
	now := timeNow().UTC()
	issuer := seed.TwoFactorIssuer
	if issuer == "" {
		issuer = defaultTwoFactorIssuer
	}
	for _, role := range seed.Roles {
		dir.PutRole(domain.Role{ID: role.ID, Name: role.Name, Permissions: role.Permissions, Level: role.Level})
	}
	for _, admin := range seed.Admins {
		hash, err := hasher.Hash(admin.Password)
		if err != nil {
			return 0, fmt.Errorf("hash seed password for %s: %w", logger.MaskEmail(admin.Email), err)
		}
		userID := uuid.NewString()
		dir.PutUser(domain.User{
			ID:           userID,
			Email:        strings.ToLower(strings.TrimSpace(admin.Email)),
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		record := domain.AdminUser{
			ID:        uuid.NewString(),
			UserID:    userID,
			RoleID:    admin.RoleID,
			IsActive:  !admin.Inactive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		secret := admin.TwoFactorSecret
		if secret == "" && admin.ProvisionTwoFactor {
			generated, url, err := security.GenerateTOTPSecret(issuer, admin.Email)
			if err != nil {
				return 0, fmt.Errorf("provision two-factor for %s: %w", logger.MaskEmail(admin.Email), err)
			}
			secret = generated
			log.Info("provisioned two-factor secret for seeded admin",
				zap.String("email", logger.MaskEmail(admin.Email)),
				zap.String("otpauth_url", url))
		}
		if secret != "" {
			record.TwoFactorEnabled = true
			record.TwoFactorSecret = &secret
		}
		dir.PutAdminUser(record)
		log.Debug("seeded admin", zap.String("email", logger.MaskEmail(admin.Email)), zap.String("role_id", admin.RoleID))
	}
	return len(seed.Admins), nil
}
