package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/resilience"
)

// Publisher is the subset of kafka.Producer the collector needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector buffers chat events and publishes them to Kafka off the request
// path. Events are keyed by chat ID so a chat's search and feedback events
// land on the same partition in order.
type Collector struct {
	publisher Publisher
	breaker   *resilience.Breaker
	eventCh   chan ChatEvent
	metrics   *metrics.Metrics
	logger    *slog.Logger
	done      chan struct{}

	// mu guards closed so Track never sends on a closed eventCh.
	mu     sync.RWMutex
	closed bool
}

type CollectorConfig struct {
	BufferSize int
	// FailureThreshold consecutive publish failures stop publishing for
	// Cooldown; events arriving meanwhile are dropped.
	FailureThreshold int
	Cooldown         time.Duration
}

// NewCollector creates a Collector. m may be nil.
func NewCollector(publisher Publisher, cfg CollectorConfig, m *metrics.Metrics) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	breakerCfg := resilience.BreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		Cooldown:         cfg.Cooldown,
	}
	if m != nil {
		breakerCfg.OnStateChange = func(name string, _, to resilience.State) {
			m.BreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &Collector{
		publisher: publisher,
		breaker:   resilience.NewBreaker("kafka-publish", breakerCfg),
		eventCh:   make(chan ChatEvent, cfg.BufferSize),
		metrics:   m,
		logger:    logger.WithComponent("chat-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. When ctx is cancelled the loop drains
// whatever is still buffered and exits.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("chat collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues event without blocking. It reports false when the buffer
// is full or the collector is closed, and the event was dropped.
func (c *Collector) Track(event ChatEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Warn("chat event dropped (collector closed)", "type", event.Type, "chat_id", event.ChatID)
		if c.metrics != nil {
			c.metrics.EventsDroppedTotal.Inc()
		}
		return false
	}
	select {
	case c.eventCh <- event:
		return true
	default:
		c.logger.Warn("chat event dropped (buffer full)", "type", event.Type, "chat_id", event.ChatID)
		if c.metrics != nil {
			c.metrics.EventsDroppedTotal.Inc()
		}
		return false
	}
}

// Close stops accepting events and waits for the publish loop to finish.
// Later Track calls drop their event. Close is safe to call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

// PublishCheck reports the publish path as failing while the breaker is
// open and events are being dropped.
func (c *Collector) PublishCheck(context.Context) error {
	if c.breaker.State() == resilience.StateOpen {
		return resilience.ErrBreakerOpen
	}
	return nil
}

func (c *Collector) publish(ctx context.Context, event ChatEvent) {
	if event.RequestID != "" {
		ctx = logger.WithRequestID(ctx, event.RequestID)
	}
	err := c.breaker.Do(func() error {
		return c.publisher.Publish(ctx, kafka.Event{Key: event.ChatID, Value: event})
	})
	if errors.Is(err, resilience.ErrBreakerOpen) {
		if c.metrics != nil {
			c.metrics.EventsDroppedTotal.Inc()
		}
		logger.FromContext(ctx).Warn("chat event dropped (publisher unavailable)",
			"event_id", event.EventID,
			"type", event.Type,
		)
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to publish chat event",
			"event_id", event.EventID,
			"type", event.Type,
			"error", err,
		)
	}
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}
