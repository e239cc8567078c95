package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/logger"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

const (
	maxEmailLength    = 254
	maxPasswordLength = 1024
)

// dummyHashSource is implemented by hashers that expose a precomputed decoy hash.
type dummyHashSource interface {
	DummyHash() string
}

// CredentialVerifier checks an email/password pair against the directory.
type CredentialVerifier struct {
	directory port.DirectoryRepository
	hasher    port.PasswordHasher
	logger    *zap.Logger

	dummyOnce sync.Once
	dummy     string
}

// NewCredentialVerifier constructs a CredentialVerifier.
func NewCredentialVerifier(directory port.DirectoryRepository, hasher port.PasswordHasher, log *zap.Logger) *CredentialVerifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &CredentialVerifier{directory: directory, hasher: hasher, logger: log}
}

// Verify returns the active principal for the credentials. Unknown emails,
// wrong passwords, unusable stored hashes, accounts without an admin profile
// and inactive accounts all return ErrInvalidCredentials after one full argon2
// computation.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*domain.Principal, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentialsInput(email, password); err != nil {
		return nil, err
	}

	user, err := v.directory.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		v.burnHash(password)
		v.logger.Debug("login for unknown email", zap.String("email", logger.MaskEmail(email)))
		return nil, ErrInvalidCredentials
	}

	if user.PasswordHash == "" {
		v.burnHash(password)
		return nil, ErrInvalidCredentials
	}
	ok, err := v.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		v.burnHash(password)
		v.logger.Warn("stored password hash rejected", zap.String("user_id", user.ID), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	admin, err := v.directory.FindAdminUserByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup admin user: %w", err)
	}

	principal := domain.NewPrincipal(*user, *admin)
	if !principal.IsActive {
		v.logger.Info("login for inactive admin", zap.String("admin_user_id", admin.ID))
		return nil, ErrInvalidCredentials
	}
	return &principal, nil
}

// VerifyPassword re-checks the password of an already authenticated principal.
func (v *CredentialVerifier) VerifyPassword(ctx context.Context, userID, password string) (*domain.User, error) {
	if len(password) > maxPasswordLength {
		return nil, newValidationError("password", "password is too long")
	}
	user, err := v.directory.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.PasswordHash == "" {
		v.burnHash(password)
		return nil, ErrInvalidCredentials
	}
	ok, err := v.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		v.burnHash(password)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// burnHash spends the same hashing cost as a real comparison.
func (v *CredentialVerifier) burnHash(password string) {
	_, _ = v.hasher.Verify(password, v.dummyHash())
}

func (v *CredentialVerifier) dummyHash() string {
	v.dummyOnce.Do(func() {
		if src, ok := v.hasher.(dummyHashSource); ok {
			v.dummy = src.DummyHash()
			return
		}
		v.dummy, _ = v.hasher.Hash("decoy-password-for-unknown-accounts")
	})
	return v.dummy
}

func validateCredentialsInput(email, password string) error {
	if email == "" {
		return newValidationError("email", "email is required")
	}
	if password == "" {
		return newValidationError("password", "password is required")
	}
	if len(email) > maxEmailLength || !strings.Contains(email, "@") {
		return newValidationError("email", "email is invalid")
	}
	if len(password) > maxPasswordLength {
		return newValidationError("password", "password is too long")
	}
	return nil
}
