package domain

import "time"

// LockoutRecord counts consecutive failed logins for one lockout key.
type LockoutRecord struct {
	FailedCount   int       `json:"failed_count"`
	LastFailureAt time.Time `json:"last_failure_at"`
}
