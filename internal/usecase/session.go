package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/logger"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/security"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

const (
	defaultSessionTTL    = 8 * time.Hour
	sessionIDMaxAttempts = 3
	maxUserAgentLength   = 512
)

// SessionService manages the server-side session records that bearer tokens bind to.
type SessionService struct {
	store     port.SessionStore
	publisher port.EventPublisher
	ttl       time.Duration
	logger    *zap.Logger
	metrics   AuthMetrics
	now       func() time.Time
	newID     func(time.Time) (string, error)
}

// NewSessionService constructs a SessionService. A nil publisher disables events.
func NewSessionService(store port.SessionStore, ttl time.Duration, publisher port.EventPublisher, log *zap.Logger, metrics AuthMetrics) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{
		store:     store,
		publisher: publisher,
		ttl:       ttl,
		logger:    log,
		metrics:   metricsOrNop(metrics),
		now:       time.Now,
		newID:     security.NewSessionID,
	}
}

// WithClock overrides the time source, primarily for tests.
func (s *SessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// TTL returns the lifetime of new sessions.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create stores a fresh session for the admin.
func (s *SessionService) Create(ctx context.Context, adminUserID string, client domain.ClientInfo) (*domain.Session, error) {
	if strings.TrimSpace(adminUserID) == "" {
		return nil, fmt.Errorf("create session: admin user id is required")
	}
	if len(client.UserAgent) > maxUserAgentLength {
		client.UserAgent = client.UserAgent[:maxUserAgentLength]
	}

	now := s.now().UTC()
	session := domain.Session{
		AdminUserID: adminUserID,
		Client:      client,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	var err error
	for attempt := 0; attempt < sessionIDMaxAttempts; attempt++ {
		session.ID, err = s.newID(now)
		if err != nil {
			return nil, fmt.Errorf("generate session id: %w", err)
		}
		err = s.store.Insert(ctx, session)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("insert session: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	s.metrics.ObserveSessionsCreated(1)
	if s.publisher != nil {
		event := domain.SessionCreatedEvent{
			EventID:     uuid.NewString(),
			SessionID:   session.ID,
			AdminUserID: adminUserID,
			IPAddress:   client.IP,
			UserAgent:   client.UserAgent,
			CreatedAt:   session.CreatedAt,
			ExpiresAt:   session.ExpiresAt,
		}
		if perr := s.publisher.PublishSessionCreated(ctx, event); perr != nil {
			s.logger.Warn("publish session created", zap.Error(perr))
		}
	}
	return &session, nil
}

// Get returns the live session or ErrSessionExpired.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionExpired
	}
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !session.IsActive(s.now()) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Destroy removes one session and reports whether it existed.
func (s *SessionService) Destroy(ctx context.Context, sessionID, reason string) (bool, error) {
	var adminUserID string
	if session, err := s.store.Get(ctx, sessionID); err == nil {
		adminUserID = session.AdminUserID
	}

	removed, err := s.store.Delete(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if !removed {
		return false, nil
	}

	s.metrics.ObserveSessionsRevoked(reason, 1)
	if s.publisher != nil {
		event := domain.SessionRevokedEvent{
			EventID:     uuid.NewString(),
			SessionID:   sessionID,
			AdminUserID: adminUserID,
			RevokedAt:   s.now().UTC(),
			Reason:      reason,
		}
		if perr := s.publisher.PublishSessionRevoked(ctx, event); perr != nil {
			s.logger.Warn("publish session revoked", zap.Error(perr))
		}
	}
	return true, nil
}

// DestroyAllForAdmin removes every session of the admin. Lookups issued after
// it returns observe none of them.
func (s *SessionService) DestroyAllForAdmin(ctx context.Context, adminUserID, reason, triggeredBy string) (int, error) {
	ids, err := s.store.DeleteAllForAdmin(ctx, adminUserID)
	if err != nil {
		return 0, fmt.Errorf("delete admin sessions: %w", err)
	}

	s.metrics.ObserveSessionsRevoked(reason, len(ids))
	s.logger.Info("admin sessions invalidated",
		zap.String("admin_user_id", adminUserID),
		zap.Int("sessions", len(ids)),
		zap.String("reason", reason),
	)
	if s.publisher != nil {
		event := domain.SessionsInvalidatedEvent{
			EventID:         uuid.NewString(),
			AdminUserID:     adminUserID,
			SessionsRevoked: len(ids),
			InvalidatedAt:   s.now().UTC(),
			Reason:          reason,
			TriggeredBy:     triggeredBy,
		}
		if perr := s.publisher.PublishSessionsInvalidated(ctx, event); perr != nil {
			s.logger.Warn("publish sessions invalidated", zap.Error(perr))
		}
	}
	return len(ids), nil
}

// ListForAdmin returns the admin's live sessions, oldest first.
func (s *SessionService) ListForAdmin(ctx context.Context, adminUserID string) ([]domain.Session, error) {
	sessions, err := s.store.ListByAdmin(ctx, adminUserID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := s.now()
	live := sessions[:0]
	for _, session := range sessions {
		if session.IsActive(now) {
			live = append(live, session)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].CreatedAt.Before(live[j].CreatedAt) })
	return live, nil
}

// SweepExpired drops sessions past their expiry.
func (s *SessionService) SweepExpired(ctx context.Context) (int, error) {
	removed, err := s.store.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	if removed > 0 {
		s.logger.Debug("expired sessions swept", zap.Int("removed", removed))
	}
	return removed, nil
}

func clientFields(client domain.ClientInfo) []zap.Field {
	return []zap.Field{zap.String("client_ip", logger.MaskIP(client.IP))}
}
