package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

// Directory is an in-memory admin directory used for development seeds and tests.
type Directory struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	admins map[string]domain.AdminUser
	roles  map[string]domain.Role
}

// NewDirectory constructs an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		users:  make(map[string]domain.User),
		admins: make(map[string]domain.AdminUser),
		roles:  make(map[string]domain.Role),
	}
}

// PutUser inserts or replaces a user account.
func (d *Directory) PutUser(user domain.User) {
	d.mu.Lock()
	d.users[user.ID] = user
	d.mu.Unlock()
}

// PutAdminUser inserts or replaces an admin profile.
func (d *Directory) PutAdminUser(admin domain.AdminUser) {
	d.mu.Lock()
	d.admins[admin.ID] = admin
	d.mu.Unlock()
}

// PutRole inserts or replaces a role.
func (d *Directory) PutRole(role domain.Role) {
	d.mu.Lock()
	role.Permissions = append([]string(nil), role.Permissions...)
	d.roles[role.ID] = role
	d.mu.Unlock()
}

func (d *Directory) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, user := range d.users {
		if strings.ToLower(user.Email) == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d *Directory) FindUserByID(_ context.Context, userID string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (d *Directory) FindAdminUserByID(_ context.Context, adminUserID string) (*domain.AdminUser, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	admin, ok := d.admins[adminUserID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &admin, nil
}

func (d *Directory) FindAdminUserByUserID(_ context.Context, userID string) (*domain.AdminUser, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, admin := range d.admins {
		if admin.UserID == userID {
			a := admin
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d *Directory) FindRoleByID(_ context.Context, roleID string) (*domain.Role, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	role, ok := d.roles[roleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	role.Permissions = append([]string(nil), role.Permissions...)
	return &role, nil
}

func (d *Directory) UpdatePassword(_ context.Context, userID string, passwordHash string, changedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = changedAt
	d.users[userID] = user
	return nil
}

func (d *Directory) SetAdminActive(_ context.Context, adminUserID string, active bool, changedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	admin, ok := d.admins[adminUserID]
	if !ok {
		return repository.ErrNotFound
	}
	admin.IsActive = active
	admin.UpdatedAt = changedAt
	d.admins[adminUserID] = admin
	return nil
}

var _ port.Directory = (*Directory)(nil)
