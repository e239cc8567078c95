package memory

import (
	"context"
	"sync"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
)

// ExpiringSet remembers keys until a per-key deadline. It backs the revoked token set
// and the one-time code replay guard.
type ExpiringSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewExpiringSet constructs an empty set.
func NewExpiringSet() *ExpiringSet {
	return &ExpiringSet{entries: make(map[string]time.Time), now: time.Now}
}

// WithClock overrides the clock used for deadlines.
func (s *ExpiringSet) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Revoke adds tokenID to the set for ttl.
func (s *ExpiringSet) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	s.entries[tokenID] = s.now().Add(ttl)
	s.mu.Unlock()
	return nil
}

// IsRevoked reports whether tokenID is in the set.
func (s *ExpiringSet) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containsLocked(tokenID), nil
}

// MarkUsed adds the admin's code and reports whether it was absent.
func (s *ExpiringSet) MarkUsed(_ context.Context, adminUserID, code string, ttl time.Duration) (bool, error) {
	key := adminUserID + ":" + code
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.containsLocked(key) {
		return false, nil
	}
	s.entries[key] = s.now().Add(ttl)
	return true, nil
}

// Prune drops entries whose deadline passed.
func (s *ExpiringSet) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, deadline := range s.entries {
		if !deadline.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *ExpiringSet) containsLocked(key string) bool {
	deadline, ok := s.entries[key]
	if !ok {
		return false
	}
	if !deadline.After(s.now()) {
		delete(s.entries, key)
		return false
	}
	return true
}

var (
	_ port.TokenRevocationStore = (*ExpiringSet)(nil)
	_ port.OTPReplayStore       = (*ExpiringSet)(nil)
)
