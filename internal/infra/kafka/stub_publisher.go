package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when Kafka is disabled.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) PublishSessionCreated(_ context.Context, event domain.SessionCreatedEvent) error {
	p.logger.Info("event",
		zap.String("event_type", EventSessionCreated),
		zap.String("session_id", event.SessionID),
		zap.String("admin_user_id", event.AdminUserID),
		zap.String("ip", logger.MaskIP(event.IPAddress)),
	)
	return nil
}

func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.logger.Info("event",
		zap.String("event_type", EventSessionRevoked),
		zap.String("session_id", event.SessionID),
		zap.String("admin_user_id", event.AdminUserID),
		zap.String("reason", event.Reason),
	)
	return nil
}

func (p *StubPublisher) PublishSessionsInvalidated(_ context.Context, event domain.SessionsInvalidatedEvent) error {
	p.logger.Info("event",
		zap.String("event_type", EventSessionsInvalidated),
		zap.String("admin_user_id", event.AdminUserID),
		zap.Int("sessions_revoked", event.SessionsRevoked),
		zap.String("reason", event.Reason),
	)
	return nil
}

func (p *StubPublisher) PublishLoginLocked(_ context.Context, event domain.LoginLockedEvent) error {
	p.logger.Warn("event",
		zap.String("event_type", EventLoginLocked),
		zap.String("lockout_key", logger.MaskLockoutKey(event.LockoutKey)),
		zap.Int("failed_count", event.FailedCount),
		zap.Time("locked_until", event.LockedUntil),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
