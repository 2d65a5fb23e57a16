// Package recorder consumes chat events from Kafka and writes them to the
// chats table that the analytics aggregator reads.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/resilience"
)

const dedupeKeyPrefix = "chat-event:"

// Outcome labels for the chat events metric.
const (
	statusRecorded    = "recorded"
	statusDuplicate   = "duplicate"
	statusInvalid     = "invalid"
	statusNotFound    = "not_found"
	statusAlreadySet  = "already_set"
	statusWriteFailed = "error"
)

// Writer persists chat events.
type Writer interface {
	InsertChat(ctx context.Context, ev analytics.SearchEvent) error
	SetFeedback(ctx context.Context, chatID string, feedback analytics.Feedback) error
}

// Deduper remembers which events have already been processed. The Redis
// client implements it.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Config struct {
	DedupeTTL     time.Duration
	WriteAttempts int
	WriteBackoff  time.Duration
	// WriteTimeout bounds each write attempt. Zero means no bound.
	WriteTimeout time.Duration
}

type Recorder struct {
	writer  Writer
	deduper Deduper
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Recorder. deduper and m may be nil; without a deduper every
// event is processed and idempotent writes absorb redeliveries.
func New(writer Writer, deduper Deduper, cfg Config, m *metrics.Metrics) *Recorder {
	return &Recorder{
		writer:  writer,
		deduper: deduper,
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("recorder"),
	}
}

// HandleMessage is the kafka.MessageHandler for the chat-events topic. It
// returns an error only for transient write failures; the consumer then
// redelivers the same message without committing past it, which is why the
// dedupe claim is released. Malformed, duplicate and permanently rejected
// events are acknowledged.
func (r *Recorder) HandleMessage(ctx context.Context, msg kafka.Message) error {
	log := logger.FromContext(ctx).With("component", "recorder")

	event, err := kafka.DecodeJSON[analytics.ChatEvent](msg.Value)
	if err != nil {
		log.Warn("dropping undecodable chat event", "key", string(msg.Key), "error", err)
		r.observe("unknown", statusInvalid)
		return nil
	}
	log = log.With("event_id", event.EventID, "chat_id", event.ChatID, "type", event.Type)

	if err := validate(event); err != nil {
		log.Warn("dropping invalid chat event", "error", err)
		r.observe(event.Type, statusInvalid)
		return nil
	}

	key := dedupeKeyPrefix + event.EventID
	if r.deduper != nil {
		claimed, err := r.deduper.Claim(ctx, key, r.cfg.DedupeTTL)
		switch {
		case err != nil:
			log.Warn("dedupe unavailable, processing anyway", "error", err)
		case !claimed:
			log.Debug("skipping duplicate chat event")
			r.observe(event.Type, statusDuplicate)
			return nil
		}
	}

	err = resilience.Retry(ctx, "record-chat-event", resilience.RetryConfig{
		MaxAttempts:  r.cfg.WriteAttempts,
		InitialDelay: r.cfg.WriteBackoff,
		ShouldRetry:  func(err error) bool { return !apperrors.Permanent(err) },
	}, func() error {
		return resilience.WithTimeout(ctx, r.cfg.WriteTimeout, "write "+string(event.Type), func(ctx context.Context) error {
			return r.apply(ctx, event)
		})
	})

	switch {
	case err == nil:
		log.Info("chat event recorded")
		r.observe(event.Type, statusRecorded)
		return nil
	case errors.Is(err, apperrors.ErrDuplicateEvent):
		log.Debug("chat already stored, ignoring redelivery")
		r.observe(event.Type, statusDuplicate)
		return nil
	case errors.Is(err, apperrors.ErrChatNotFound):
		log.Warn("feedback for unknown chat dropped")
		r.observe(event.Type, statusNotFound)
		return nil
	case errors.Is(err, apperrors.ErrFeedbackAlreadySet):
		log.Info("feedback already recorded, ignoring")
		r.observe(event.Type, statusAlreadySet)
		return nil
	case apperrors.Permanent(err):
		log.Warn("chat event rejected", "error", err)
		r.observe(event.Type, statusInvalid)
		return nil
	}

	log.Error("failed to record chat event", "error", err)
	r.observe(event.Type, statusWriteFailed)
	if r.deduper != nil {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if rerr := r.deduper.Release(releaseCtx, key); rerr != nil {
			log.Warn("failed to release dedupe key", "error", rerr)
		}
	}
	return err
}

func (r *Recorder) apply(ctx context.Context, event analytics.ChatEvent) error {
	switch event.Type {
	case analytics.EventSearch:
		return r.writer.InsertChat(ctx, analytics.SearchEvent{
			ID:        event.ChatID,
			Question:  event.Question,
			CreatedAt: event.Timestamp,
		})
	case analytics.EventFeedback:
		return r.writer.SetFeedback(ctx, event.ChatID, event.Feedback)
	default:
		return fmt.Errorf("%w: unknown event type %q", apperrors.ErrInvalidInput, event.Type)
	}
}

func validate(event analytics.ChatEvent) error {
	switch {
	case event.EventID == "":
		return errors.New("missing event_id")
	case event.ChatID == "":
		return errors.New("missing chat_id")
	}
	switch event.Type {
	case analytics.EventSearch:
		if event.Question == "" {
			return errors.New("search event without question")
		}
		if event.Timestamp.IsZero() {
			return errors.New("search event without timestamp")
		}
	case analytics.EventFeedback:
		if !event.Feedback.Valid() {
			return errors.New("feedback event with unknown label")
		}
	default:
		return errors.New("unknown event type")
	}
	return nil
}

func (r *Recorder) observe(eventType analytics.EventType, status string) {
	if r.metrics != nil {
		r.metrics.ChatEventsTotal.WithLabelValues(string(eventType), status).Inc()
	}
}
