// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. The producer serialises events as JSON, while the
// consumer hands decoded messages to a pluggable MessageHandler callback.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// Message is the consumer-side view of a Kafka record.
type Message struct {
	Key       []byte
	Value     []byte
	RequestID string
	Time      time.Time
}

// MessageHandler is a callback invoked for each Kafka message. A nil error
// commits the message offset. A non-nil error redelivers the same message
// after a backoff; later messages wait behind it.
type MessageHandler func(ctx context.Context, msg Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler. Offsets are committed strictly in order, so a message is
// never skipped because a later one succeeded.
type Consumer struct {
	reader  messageReader
	logger  *slog.Logger
	handler MessageHandler
	backoff resilience.RetryConfig
}

// NewConsumer creates a Consumer for the given topic and handler.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &Consumer{
		reader:  r,
		logger:  logger.WithComponent("kafka-consumer", "topic", topic),
		handler: handler,
		backoff: resilience.RetryConfig{
			MaxAttempts:  resilience.Unlimited,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     30 * time.Second,
		},
	}
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled. A message whose handler keeps failing is retried until ctx
// ends and is left uncommitted, so the group redelivers it on restart.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return c.reader.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.reader.Close()
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)

		m := Message{Key: msg.Key, Value: msg.Value, Time: msg.Time}
		for _, h := range msg.Headers {
			if h.Key == requestIDHeader {
				m.RequestID = string(h.Value)
			}
		}
		handlerCtx := ctx
		if m.RequestID != "" {
			handlerCtx = logger.WithRequestID(ctx, m.RequestID)
		}

		err = resilience.Retry(ctx, "kafka-handle", c.backoff, func() error {
			return c.handler(handlerCtx, m)
		})
		if err != nil {
			c.logger.Error("leaving message uncommitted",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			return c.reader.Close()
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
