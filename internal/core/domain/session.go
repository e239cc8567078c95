package domain

import "time"

// ClientInfo captures the network origin of a login.
type ClientInfo struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

// Session is the server-side record binding an admin to a live login.
type Session struct {
	ID          string     `json:"id"`
	AdminUserID string     `json:"admin_user_id"`
	Client      ClientInfo `json:"client"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// IsActive reports whether the session has not yet expired at the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	return s.ExpiresAt.After(at)
}

// TTL returns the remaining lifetime at the supplied moment, never negative.
func (s Session) TTL(at time.Time) time.Duration {
	if remaining := s.ExpiresAt.Sub(at); remaining > 0 {
		return remaining
	}
	return 0
}
