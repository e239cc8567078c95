package domain

import "time"

// SessionCreatedEvent represents the payload for admin.session.created messages.
type SessionCreatedEvent struct {
	EventID     string
	SessionID   string
	AdminUserID string
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// SessionRevokedEvent represents the payload for admin.session.revoked messages.
type SessionRevokedEvent struct {
	EventID     string
	SessionID   string
	AdminUserID string
	RevokedAt   time.Time
	Reason      string
}

// SessionsInvalidatedEvent represents the payload for admin.sessions.invalidated messages.
type SessionsInvalidatedEvent struct {
	EventID         string
	AdminUserID     string
	SessionsRevoked int
	InvalidatedAt   time.Time
	Reason          string
	TriggeredBy     string
}

// LoginLockedEvent represents the payload for admin.login.locked messages.
type LoginLockedEvent struct {
	EventID     string
	LockoutKey  string
	FailedCount int
	LockedAt    time.Time
	LockedUntil time.Time
}

// DirectoryEventType enumerates the write-side directory changes the service reacts to.
type DirectoryEventType string

const (
	DirectoryEventPasswordChanged    DirectoryEventType = "admin.password.changed"
	DirectoryEventAccountDeactivated DirectoryEventType = "admin.account.deactivated"
	DirectoryEventRoleChanged        DirectoryEventType = "admin.role.changed"
)

// DirectoryEvent is a notification that an admin record changed outside this service.
type DirectoryEvent struct {
	EventID     string
	Type        DirectoryEventType
	AdminUserID string
	OccurredAt  time.Time
	ChangedBy   string
}

// Session invalidation reasons recorded on revocation events.
const (
	RevokeReasonLogout          = "logout"
	RevokeReasonLogoutAll       = "logout_all"
	RevokeReasonPasswordChanged = "password_changed"
	RevokeReasonDeactivated     = "account_deactivated"
)
