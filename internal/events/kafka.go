package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig configures KafkaPublisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaPublisher writes events as JSON messages keyed by subject, so every
// change to one system lands on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

// Compile-time check that KafkaPublisher satisfies Publisher.
var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher builds a publisher. It does not dial; the first write
// connects.
func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            1,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, topic: cfg.Topic, logger: logger.Named("kafka")}, nil
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := toMessage(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("publish failed",
			zap.String("topic", p.topic),
			zap.String("kind", string(ev.Kind)),
			zap.String("subject", ev.Subject),
			zap.Error(err))
		return fmt.Errorf("kafka: publish %s: %w", ev.Kind, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("kafka: close: %w", err)
	}
	return nil
}

func toMessage(ev Event) (kafka.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.Subject),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-kind", Value: []byte(ev.Kind)},
			{Key: "event-id", Value: []byte(ev.ID)},
		},
		Time: ev.Time,
	}, nil
}
