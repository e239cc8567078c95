package memory

import (
	"context"
	"sync"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

type lockoutEntry struct {
	record    domain.LockoutRecord
	expiresAt time.Time
}

// LockoutStore keeps failure counters in a map; an entry lapses resetAfter past its last failure.
type LockoutStore struct {
	mu      sync.Mutex
	entries map[string]lockoutEntry
	now     func() time.Time
}

// NewLockoutStore constructs an empty in-memory lockout store.
func NewLockoutStore() *LockoutStore {
	return &LockoutStore{entries: make(map[string]lockoutEntry), now: time.Now}
}

// WithClock overrides the clock used to expire idle records.
func (s *LockoutStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *LockoutStore) RecordFailure(_ context.Context, key string, at time.Time, resetAfter time.Duration) (domain.LockoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !entry.expiresAt.After(at) {
		entry = lockoutEntry{}
	}
	entry.record.FailedCount++
	entry.record.LastFailureAt = at
	entry.expiresAt = at.Add(resetAfter)
	s.entries[key] = entry
	return entry.record, nil
}

func (s *LockoutStore) Get(_ context.Context, key string) (*domain.LockoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !entry.expiresAt.After(s.now()) {
		delete(s.entries, key)
		return nil, repository.ErrNotFound
	}
	record := entry.record
	return &record, nil
}

func (s *LockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

var _ port.LockoutStore = (*LockoutStore)(nil)
