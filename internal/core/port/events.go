package port

import (
	"context"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
)

// EventPublisher publishes session lifecycle events to the message bus.
type EventPublisher interface {
	PublishSessionCreated(ctx context.Context, event domain.SessionCreatedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishSessionsInvalidated(ctx context.Context, event domain.SessionsInvalidatedEvent) error
	PublishLoginLocked(ctx context.Context, event domain.LoginLockedEvent) error
}
