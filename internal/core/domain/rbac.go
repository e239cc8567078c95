package domain

// PermissionWildcard grants every permission when present in a role.
const PermissionWildcard = "*"

// Permissions checked by the admin endpoints of this service.
const (
	PermissionAdminManage    = "admin:manage"
	PermissionSecurityManage = "security:manage"
)

// Role defines the permission set and privilege level of an admin.
type Role struct {
	ID          string
	Name        string
	Permissions []string
	Level       int
}

// HasPermission reports whether the role grants the permission, directly or through the wildcard.
func (r Role) HasPermission(permission string) bool {
	for _, granted := range r.Permissions {
		if granted == PermissionWildcard || granted == permission {
			return true
		}
	}
	return false
}

// MeetsLevel reports whether the role level is at least minLevel.
func (r Role) MeetsLevel(minLevel int) bool {
	return r.Level >= minLevel
}
