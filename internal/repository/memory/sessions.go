// Package memory holds process-local implementations of the storage ports.
// They are the default backends for single-process deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

// SessionStore keeps sessions in a map guarded by a single mutex, with a per-admin index.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	byAdmin  map[string]map[string]struct{}
	now      func() time.Time
}

// NewSessionStore constructs an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
		byAdmin:  make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

// WithClock overrides the clock used to hide expired sessions.
func (s *SessionStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *SessionStore) Insert(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[session.ID]; ok && existing.IsActive(s.now()) {
		return repository.ErrConflict
	}
	s.sessions[session.ID] = session
	ids, ok := s.byAdmin[session.AdminUserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byAdmin[session.AdminUserID] = ids
	}
	ids[session.ID] = struct{}{}
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || !session.IsActive(s.now()) {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(sessionID), nil
}

func (s *SessionStore) DeleteAllForAdmin(_ context.Context, adminUserID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.byAdmin[adminUserID]))
	for id := range s.byAdmin[adminUserID] {
		ids = append(ids, id)
	}
	for _, id := range ids {
		s.deleteLocked(id)
	}
	return ids, nil
}

func (s *SessionStore) ListByAdmin(_ context.Context, adminUserID string) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	sessions := make([]domain.Session, 0, len(s.byAdmin[adminUserID]))
	for id := range s.byAdmin[adminUserID] {
		if session := s.sessions[id]; session.IsActive(now) {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (s *SessionStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if !session.IsActive(now) {
			s.deleteLocked(id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included until swept.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) deleteLocked(sessionID string) bool {
	session, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	delete(s.sessions, sessionID)
	if ids := s.byAdmin[session.AdminUserID]; ids != nil {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(s.byAdmin, session.AdminUserID)
		}
	}
	return true
}

var _ port.SessionStore = (*SessionStore)(nil)
