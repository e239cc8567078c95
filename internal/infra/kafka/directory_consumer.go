package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/config"
)

// DirectoryEventHandler reacts to directory changes.
type DirectoryEventHandler interface {
	HandleDirectoryEvent(ctx context.Context, event domain.DirectoryEvent) error
}

// DirectoryConsumerOptions controls lag reporting.
type DirectoryConsumerOptions struct {
	MaxEventLag time.Duration
}

// DirectoryConsumer turns directory change messages into session invalidations.
type DirectoryConsumer struct {
	handler     DirectoryEventHandler
	logger      *zap.Logger
	maxEventLag time.Duration
	now         func() time.Time
}

// NewDirectoryConsumer constructs a consumer that forwards events to handler.
func NewDirectoryConsumer(handler DirectoryEventHandler, logger *zap.Logger, opts DirectoryConsumerOptions) *DirectoryConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryConsumer{
		handler:     handler,
		logger:      logger,
		maxEventLag: opts.MaxEventLag,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the consumer clock for deterministic testing.
func (c *DirectoryConsumer) WithClock(clock func() time.Time) *DirectoryConsumer {
	if clock != nil {
		c.now = clock
	}
	return c
}

type directoryMessage struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   struct {
		AdminUserID string `json:"admin_user_id"`
		ChangedBy   string `json:"changed_by"`
	} `json:"payload"`
}

// errPoisonMessage marks messages that can never be processed.
var errPoisonMessage = errors.New("undecodable directory event")

// HandleMessage decodes a Kafka message and forwards it to the handler.
func (c *DirectoryConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", errPoisonMessage)
	}

	var decoded directoryMessage
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		return fmt.Errorf("%w: %v", errPoisonMessage, err)
	}
	event := domain.DirectoryEvent{
		EventID:     decoded.EventID,
		Type:        domain.DirectoryEventType(decoded.EventType),
		AdminUserID: decoded.Payload.AdminUserID,
		OccurredAt:  decoded.Timestamp,
		ChangedBy:   decoded.Payload.ChangedBy,
	}

	if !event.OccurredAt.IsZero() && c.maxEventLag > 0 {
		if lag := c.now().Sub(event.OccurredAt); lag > c.maxEventLag {
			c.logger.Warn("directory event lag exceeds threshold",
				zap.Duration("lag", lag),
				zap.String("event_id", event.EventID),
			)
		}
	}

	if err := c.handler.HandleDirectoryEvent(ctx, event); err != nil {
		return fmt.Errorf("handle %s: %w", event.Type, err)
	}
	return nil
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *DirectoryConsumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *DirectoryConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes messages of one partition. Failed messages are logged
// and committed; session invalidation is idempotent and a later event for the
// same admin repeats it.
func (c *DirectoryConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.HandleMessage(session.Context(), msg); err != nil {
				c.logger.Error("directory event failed",
					zap.Error(err),
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// NewConsumerGroup joins the configured consumer group.
func NewConsumerGroup(cfg config.KafkaSettings) (sarama.ConsumerGroup, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, newSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return group, nil
}

// Run consumes topics until ctx is cancelled, rejoining after each rebalance.
func (c *DirectoryConsumer) Run(ctx context.Context, group sarama.ConsumerGroup, topics ...string) error {
	go func() {
		for err := range group.Errors() {
			c.logger.Warn("consumer group error", zap.Error(err))
		}
	}()
	for {
		if err := group.Consume(ctx, topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume directory events: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

var _ sarama.ConsumerGroupHandler = (*DirectoryConsumer)(nil)
