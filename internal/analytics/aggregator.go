package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/tracing"
)

// Source runs the read-only aggregate queries behind a Snapshot. The
// Postgres implementation lives in internal/analytics/store.
type Source interface {
	CountToday(ctx context.Context) (int64, error)
	CountWeek(ctx context.Context) (int64, error)
	CountMonth(ctx context.Context) (int64, error)
	TopQueries(ctx context.Context, limit int) ([]QueryCount, error)
	DailyActivity(ctx context.Context, days int) ([]DailyActivity, error)
	FeedbackStats(ctx context.Context) (map[string]int64, error)
}

// Aggregator assembles a Snapshot by issuing the six aggregate queries
// concurrently. It keeps no state between calls.
type Aggregator struct {
	source  Source
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator. m may be nil.
func NewAggregator(source Source, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		source:  source,
		metrics: m,
		logger:  logger.WithComponent("analytics-aggregator"),
	}
}

// Snapshot computes every field fresh. The first failing query cancels the
// rest and the whole snapshot fails; there is no partial result and no retry.
func (a *Aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "analytics.snapshot", logger.RequestID(ctx))

	snap := &Snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	a.query(g, gctx, FieldToday, func(ctx context.Context) (err error) {
		snap.TotalSearchesToday, err = a.source.CountToday(ctx)
		return err
	})
	a.query(g, gctx, FieldWeek, func(ctx context.Context) (err error) {
		snap.TotalSearchesWeek, err = a.source.CountWeek(ctx)
		return err
	})
	a.query(g, gctx, FieldMonth, func(ctx context.Context) (err error) {
		snap.TotalSearchesMonth, err = a.source.CountMonth(ctx)
		return err
	})
	a.query(g, gctx, FieldTopSearches, func(ctx context.Context) (err error) {
		snap.TopSearches, err = a.source.TopQueries(ctx, TopSearchesLimit)
		return err
	})
	a.query(g, gctx, FieldUserActivity, func(ctx context.Context) (err error) {
		snap.UserActivity, err = a.source.DailyActivity(ctx, ActivityDays)
		return err
	})
	a.query(g, gctx, FieldFeedbackStats, func(ctx context.Context) (err error) {
		snap.FeedbackStats, err = a.source.FeedbackStats(ctx)
		return err
	})

	err := g.Wait()
	span.End(err)
	span.SetAttr("duration_total_ms", time.Since(start).Milliseconds())
	span.Log(logger.FromContext(ctx).With("component", "analytics-aggregator"))

	if err != nil {
		a.observeSnapshot("error")
		return nil, err
	}
	a.observeSnapshot("ok")

	normalize(snap)
	return snap, nil
}

func (a *Aggregator) query(g *errgroup.Group, ctx context.Context, field string, fn func(ctx context.Context) error) {
	g.Go(func() error {
		qctx, span := tracing.StartChildSpan(ctx, field)
		start := time.Now()
		err := fn(qctx)
		span.End(err)

		if a.metrics != nil {
			a.metrics.AggregationDuration.WithLabelValues(field).Observe(time.Since(start).Seconds())
		}
		if err == nil {
			return nil
		}
		// Siblings cancelled by the first failure are not failures of their own.
		if !errors.Is(err, context.Canceled) || ctx.Err() == nil {
			a.logger.Error("analytics query failed", "field", field, "error", err)
			if a.metrics != nil {
				a.metrics.AggregationFailures.WithLabelValues(field).Inc()
			}
		}
		return fmt.Errorf("%s: %w", field, err)
	})
}

func (a *Aggregator) observeSnapshot(outcome string) {
	if a.metrics != nil {
		a.metrics.SnapshotsTotal.WithLabelValues(outcome).Inc()
	}
}

// normalize replaces nil collections so they encode as [] and {}.
func normalize(s *Snapshot) {
	if s.TopSearches == nil {
		s.TopSearches = []QueryCount{}
	}
	if s.UserActivity == nil {
		s.UserActivity = []DailyActivity{}
	}
	if s.FeedbackStats == nil {
		s.FeedbackStats = map[string]int64{}
	}
}
