package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types published by the service.
const (
	EventSessionCreated      = "admin.session.created"
	EventSessionRevoked      = "admin.session.revoked"
	EventSessionsInvalidated = "admin.sessions.invalidated"
	EventLoginLocked         = "admin.login.locked"
)

// EventPublisher implements port.EventPublisher on Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID     string            `json:"event_id"`
	EventType   string            `json:"event_type"`
	AdminUserID string            `json:"admin_user_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Version     string            `json:"version"`
	Payload     json.RawMessage   `json:"payload"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, key string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	envelope, err := json.Marshal(eventEnvelope{
		EventID:     eventID,
		EventType:   eventType,
		AdminUserID: key,
		Timestamp:   ts.UTC(),
		Version:     schemaVersion,
		Payload:     body,
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(envelope),
	}
	// Keyed by admin so per-admin events stay ordered within a partition.
	if key != "" {
		message.Key = sarama.StringEncoder(key)
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *EventPublisher) PublishSessionCreated(ctx context.Context, event domain.SessionCreatedEvent) error {
	payload := struct {
		SessionID   string    `json:"session_id"`
		AdminUserID string    `json:"admin_user_id"`
		IPAddress   string    `json:"ip_address,omitempty"`
		UserAgent   string    `json:"user_agent,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
		ExpiresAt   time.Time `json:"expires_at"`
	}{
		SessionID:   event.SessionID,
		AdminUserID: event.AdminUserID,
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		CreatedAt:   event.CreatedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventSessionCreated, event.AdminUserID, event.CreatedAt, payload)
}

func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID   string    `json:"session_id"`
		AdminUserID string    `json:"admin_user_id"`
		RevokedAt   time.Time `json:"revoked_at"`
		Reason      string    `json:"reason"`
	}{
		SessionID:   event.SessionID,
		AdminUserID: event.AdminUserID,
		RevokedAt:   event.RevokedAt.UTC(),
		Reason:      event.Reason,
	}
	return p.publish(ctx, event.EventID, EventSessionRevoked, event.AdminUserID, event.RevokedAt, payload)
}

func (p *EventPublisher) PublishSessionsInvalidated(ctx context.Context, event domain.SessionsInvalidatedEvent) error {
	payload := struct {
		AdminUserID     string    `json:"admin_user_id"`
		SessionsRevoked int       `json:"sessions_revoked"`
		InvalidatedAt   time.Time `json:"invalidated_at"`
		Reason          string    `json:"reason"`
		TriggeredBy     string    `json:"triggered_by,omitempty"`
	}{
		AdminUserID:     event.AdminUserID,
		SessionsRevoked: event.SessionsRevoked,
		InvalidatedAt:   event.InvalidatedAt.UTC(),
		Reason:          event.Reason,
		TriggeredBy:     event.TriggeredBy,
	}
	return p.publish(ctx, event.EventID, EventSessionsInvalidated, event.AdminUserID, event.InvalidatedAt, payload)
}

// PublishLoginLocked carries the lockout key, which may embed an email; consumers must treat it as PII.
func (p *EventPublisher) PublishLoginLocked(ctx context.Context, event domain.LoginLockedEvent) error {
	payload := struct {
		LockoutKey  string    `json:"lockout_key"`
		FailedCount int       `json:"failed_count"`
		LockedAt    time.Time `json:"locked_at"`
		LockedUntil time.Time `json:"locked_until"`
	}{
		LockoutKey:  event.LockoutKey,
		FailedCount: event.FailedCount,
		LockedAt:    event.LockedAt.UTC(),
		LockedUntil: event.LockedUntil.UTC(),
	}
	return p.publish(ctx, event.EventID, EventLoginLocked, "", event.LockedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
