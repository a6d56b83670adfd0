package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of kafka.Writer the forwarder uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder is a wildcard event handler that copies every domain event
// onto a Kafka topic, keyed by form token so a form's events stay ordered.
type KafkaForwarder struct {
	writer     MessageWriter
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaForwarder builds an async kafka.Writer from configuration.
// Write errors surface through the completion callback and are only logged.
func NewKafkaForwarder(cfg config.KafkaConfig, serializer *EventSerializer, logger *zap.Logger) (*KafkaForwarder, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            cfg.MaxAttempts,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("failed to forward events to kafka",
					zap.String("topic", cfg.Topic),
					zap.Int("count", len(messages)),
					zap.Error(err),
				)
			}
		},
	}

	logger.Info("kafka forwarder created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return NewKafkaForwarderWithWriter(writer, serializer, logger), nil
}

// NewKafkaForwarderWithWriter wraps an existing writer
func NewKafkaForwarderWithWriter(writer MessageWriter, serializer *EventSerializer, logger *zap.Logger) *KafkaForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if serializer == nil {
		serializer = NewEventSerializer()
	}
	return &KafkaForwarder{
		writer:     writer,
		serializer: serializer,
		logger:     logger,
	}
}

// EventTypes returns nil so the forwarder receives every event
func (f *KafkaForwarder) EventTypes() []string {
	return nil
}

// Handle serializes event and hands it to the writer
func (f *KafkaForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	value, err := f.serializer.Serialize(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateKey()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "aggregate_type", Value: []byte(event.AggregateType())},
		},
		Time: event.OccurredAt(),
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("forward %s to kafka: %w", event.EventType(), err)
	}

	f.logger.Debug("event forwarded",
		zap.String("event_type", event.EventType()),
		zap.String("form_token", event.AggregateKey()),
	)
	return nil
}

// Close flushes pending messages and closes the writer
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

// Ensure KafkaForwarder implements EventHandler
var _ shared.EventHandler = (*KafkaForwarder)(nil)
