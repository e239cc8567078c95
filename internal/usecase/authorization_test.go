package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository/memory"
)

func TestAuthorizationGuard_Check(t *testing.T) {
	directory := memory.NewDirectory()
	directory.PutRole(domain.Role{ID: "super", Permissions: []string{domain.PermissionWildcard}, Level: 100})
	directory.PutRole(domain.Role{ID: "support", Permissions: []string{"users:read", "sessions:read"}, Level: 5})
	guard := NewAuthorizationGuard(directory, nil)
	ctx := context.Background()

	super := domain.Principal{AdminUserID: "a1", RoleID: "super"}
	support := domain.Principal{AdminUserID: "a2", RoleID: "support"}
	orphan := domain.Principal{AdminUserID: "a3", RoleID: "deleted-role"}

	tests := []struct {
		name      string
		principal domain.Principal
		reqs      []Requirement
		want      error
	}{
		{"wildcard grants anything", super, []Requirement{Permission("admin:manage")}, nil},
		{"exact permission", support, []Requirement{Permission("sessions:read")}, nil},
		{"missing permission", support, []Requirement{Permission("admin:manage")}, ErrInsufficientPermissions},
		{"level met", support, []Requirement{RoleLevel(5)}, nil},
		{"level too low", support, []Requirement{RoleLevel(10)}, ErrInsufficientRoleLevel},
		{"composed permission first", support, []Requirement{Permission("admin:manage"), RoleLevel(10)}, ErrInsufficientPermissions},
		{"composed both pass", super, []Requirement{Permission("admin:manage"), RoleLevel(10)}, nil},
		{"missing role", orphan, []Requirement{RoleLevel(0)}, ErrInsufficientPermissions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Check(ctx, tt.principal, tt.reqs...)
			if tt.want == nil && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAuthorizationGuard_RoleChangesApplyImmediately(t *testing.T) {
	directory := memory.NewDirectory()
	directory.PutRole(domain.Role{ID: "r", Permissions: []string{"users:read"}, Level: 1})
	guard := NewAuthorizationGuard(directory, nil)
	principal := domain.Principal{AdminUserID: "a", RoleID: "r"}
	ctx := context.Background()

	if err := guard.RequirePermission(ctx, principal, "admin:manage"); !errors.Is(err, ErrInsufficientPermissions) {
		t.Fatalf("expected denial before role change, got %v", err)
	}
	directory.PutRole(domain.Role{ID: "r", Permissions: []string{"users:read", "admin:manage"}, Level: 20})
	if err := guard.RequirePermission(ctx, principal, "admin:manage"); err != nil {
		t.Fatalf("expected grant after role change, got %v", err)
	}
	if err := guard.RequireRoleLevel(ctx, principal, 20); err != nil {
		t.Fatalf("expected level after role change, got %v", err)
	}
}
