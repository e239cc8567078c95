package domain

import "time"

// User mirrors the login account row that owns an admin profile.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminUser is the administrative profile attached to a user account.
type AdminUser struct {
	ID               string
	UserID           string
	RoleID           string
	IsActive         bool
	TwoFactorEnabled bool
	TwoFactorSecret  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Principal is a verified administrative identity assembled from the directory.
type Principal struct {
	AdminUserID      string
	UserID           string
	Email            string
	RoleID           string
	IsActive         bool
	TwoFactorEnabled bool
	TwoFactorSecret  *string
}

// NewPrincipal combines the user account and the admin profile into a principal.
func NewPrincipal(user User, admin AdminUser) Principal {
	return Principal{
		AdminUserID:      admin.ID,
		UserID:           user.ID,
		Email:            user.Email,
		RoleID:           admin.RoleID,
		IsActive:         user.IsActive && admin.IsActive,
		TwoFactorEnabled: admin.TwoFactorEnabled,
		TwoFactorSecret:  admin.TwoFactorSecret,
	}
}
