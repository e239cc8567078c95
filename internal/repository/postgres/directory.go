package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

var (
	userColumns  = []string{"id", "email", "password_hash", "is_active", "created_at", "updated_at"}
	adminColumns = []string{"id", "user_id", "role_id", "is_active", "two_factor_enabled", "two_factor_secret", "created_at", "updated_at"}
	roleColumns  = []string{"id", "name", "permissions", "level"}
)

// DirectoryRepository reads the admin directory from the users, admin_users and admin_roles tables.
type DirectoryRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDirectoryRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewDirectoryRepository(exec pgExecutor) *DirectoryRepository {
	repo := &DirectoryRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *DirectoryRepository) WithTx(tx pgx.Tx) *DirectoryRepository {
	if tx == nil {
		return r
	}
	return &DirectoryRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// FindUserByEmail looks the account up case-insensitively.
func (r *DirectoryRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users").
		Where(squirrel.Expr("lower(email) = lower(?)", strings.TrimSpace(email))).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}
	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...), "scan user by email")
}

// FindUserByID retrieves a user account by identifier.
func (r *DirectoryRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}
	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...), "scan user")
}

// FindAdminUserByID retrieves an admin profile by identifier.
func (r *DirectoryRepository) FindAdminUserByID(ctx context.Context, adminUserID string) (*domain.AdminUser, error) {
	stmt, args, err := r.builder.
		Select(adminColumns...).
		From("admin_users").
		Where(squirrel.Eq{"id": adminUserID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select admin user sql: %w", err)
	}
	return r.scanAdmin(r.exec.QueryRow(ctx, stmt, args...), "scan admin user")
}

// FindAdminUserByUserID retrieves the admin profile owned by a user account.
func (r *DirectoryRepository) FindAdminUserByUserID(ctx context.Context, userID string) (*domain.AdminUser, error) {
	stmt, args, err := r.builder.
		Select(adminColumns...).
		From("admin_users").
		Where(squirrel.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select admin user by user sql: %w", err)
	}
	return r.scanAdmin(r.exec.QueryRow(ctx, stmt, args...), "scan admin user by user")
}

// FindRoleByID retrieves a role with its permission list.
func (r *DirectoryRepository) FindRoleByID(ctx context.Context, roleID string) (*domain.Role, error) {
	stmt, args, err := r.builder.
		Select(roleColumns...).
		From("admin_roles").
		Where(squirrel.Eq{"id": roleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role sql: %w", err)
	}

	var role domain.Role
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&role.ID, &role.Name, &role.Permissions, &role.Level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	return &role, nil
}

// UpdatePassword stores a new password hash for the user.
func (r *DirectoryRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.
		Update("users").
		Set("password_hash", passwordHash).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetAdminActive toggles the admin profile's active flag.
func (r *DirectoryRepository) SetAdminActive(ctx context.Context, adminUserID string, active bool, changedAt time.Time) error {
	stmt, args, err := r.builder.
		Update("admin_users").
		Set("is_active", active).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": adminUserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update admin active sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update admin active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DirectoryRepository) scanUser(row pgx.Row, op string) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

func (r *DirectoryRepository) scanAdmin(row pgx.Row, op string) (*domain.AdminUser, error) {
	var admin domain.AdminUser
	if err := row.Scan(
		&admin.ID,
		&admin.UserID,
		&admin.RoleID,
		&admin.IsActive,
		&admin.TwoFactorEnabled,
		&admin.TwoFactorSecret,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &admin, nil
}

var _ port.Directory = (*DirectoryRepository)(nil)
