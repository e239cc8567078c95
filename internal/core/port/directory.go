package port

import (
	"context"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
)

// DirectoryRepository reads the admin directory. Missing records surface as repository.ErrNotFound.
type DirectoryRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	FindAdminUserByID(ctx context.Context, adminUserID string) (*domain.AdminUser, error)
	FindAdminUserByUserID(ctx context.Context, userID string) (*domain.AdminUser, error)
	FindRoleByID(ctx context.Context, roleID string) (*domain.Role, error)
}

// DirectoryWriter applies the few directory mutations the service performs itself.
type DirectoryWriter interface {
	UpdatePassword(ctx context.Context, userID string, passwordHash string, changedAt time.Time) error
	SetAdminActive(ctx context.Context, adminUserID string, active bool, changedAt time.Time) error
}

// Directory combines read and write access to the directory.
type Directory interface {
	DirectoryRepository
	DirectoryWriter
}
