package port

import (
	"context"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
)

// SessionStore persists live admin sessions. Implementations must make every
// mutation atomic per session and per admin.
type SessionStore interface {
	// Insert stores a new session and returns repository.ErrConflict when the id is taken.
	Insert(ctx context.Context, session domain.Session) error
	// Get returns repository.ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	// Delete removes the session and reports whether it existed.
	Delete(ctx context.Context, sessionID string) (bool, error)
	// DeleteAllForAdmin removes every session owned by the admin and returns the removed ids.
	DeleteAllForAdmin(ctx context.Context, adminUserID string) ([]string, error)
	ListByAdmin(ctx context.Context, adminUserID string) ([]domain.Session, error)
	// SweepExpired drops sessions that expired before now and returns how many were removed.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
