package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
)

// RateLimitStore keeps fixed windows in a map. Expired windows are restarted lazily.
type RateLimitStore struct {
	mu      sync.Mutex
	windows map[string]port.RateWindow
}

// NewRateLimitStore constructs an empty in-memory window store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{windows: make(map[string]port.RateWindow)}
}

func (s *RateLimitStore) Increment(_ context.Context, key string, window time.Duration, now time.Time) (port.RateWindow, error) {
	if window <= 0 {
		return port.RateWindow{}, errors.New("window must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.windows[key]
	if !ok || now.After(state.ResetAt) {
		state = port.RateWindow{Count: 0, ResetAt: now.Add(window)}
	}
	state.Count++
	s.windows[key] = state
	return state, nil
}

func (s *RateLimitStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()
	return nil
}

func (s *RateLimitStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	s.windows = make(map[string]port.RateWindow)
	s.mu.Unlock()
	return nil
}

// Prune drops windows that elapsed before now.
func (s *RateLimitStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, state := range s.windows {
		if now.After(state.ResetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
