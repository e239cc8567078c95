package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

// Requirement is one authorization condition checked against a resolved role.
type Requirement func(role domain.Role) error

// Permission requires the role to grant permission directly or through the wildcard.
func Permission(permission string) Requirement {
	return func(role domain.Role) error {
		if !role.HasPermission(permission) {
			return ErrInsufficientPermissions
		}
		return nil
	}
}

// RoleLevel requires the role level to be at least minLevel.
func RoleLevel(minLevel int) Requirement {
	return func(role domain.Role) error {
		if !role.MeetsLevel(minLevel) {
			return ErrInsufficientRoleLevel
		}
		return nil
	}
}

// AuthorizationGuard checks a principal's role at request time, so role
// changes apply to sessions that are already open.
type AuthorizationGuard struct {
	directory port.DirectoryRepository
	logger    *zap.Logger
}

// NewAuthorizationGuard constructs an AuthorizationGuard.
func NewAuthorizationGuard(directory port.DirectoryRepository, log *zap.Logger) *AuthorizationGuard {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthorizationGuard{directory: directory, logger: log}
}

// ResolveRole loads the principal's current role.
func (g *AuthorizationGuard) ResolveRole(ctx context.Context, principal domain.Principal) (*domain.Role, error) {
	role, err := g.directory.FindRoleByID(ctx, principal.RoleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g.logger.Warn("principal references missing role",
				zap.String("admin_user_id", principal.AdminUserID),
				zap.String("role_id", principal.RoleID),
			)
			return nil, ErrInsufficientPermissions
		}
		return nil, fmt.Errorf("resolve role: %w", err)
	}
	return role, nil
}

// Check resolves the role once and applies every requirement in order.
func (g *AuthorizationGuard) Check(ctx context.Context, principal domain.Principal, requirements ...Requirement) error {
	role, err := g.ResolveRole(ctx, principal)
	if err != nil {
		return err
	}
	for _, req := range requirements {
		if err := req(*role); err != nil {
			return err
		}
	}
	return nil
}

// RequirePermission checks a single permission.
func (g *AuthorizationGuard) RequirePermission(ctx context.Context, principal domain.Principal, permission string) error {
	return g.Check(ctx, principal, Permission(permission))
}

// RequireRoleLevel checks the minimum role level.
func (g *AuthorizationGuard) RequireRoleLevel(ctx context.Context, principal domain.Principal, minLevel int) error {
	return g.Check(ctx, principal, RoleLevel(minLevel))
}
