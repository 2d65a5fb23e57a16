package analytics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
)

// fakeSource serves canned results. A non-nil entry in errs makes that
// field's query fail.
type fakeSource struct {
	today, week, month int64
	top                []QueryCount
	activity           []DailyActivity
	feedback           map[string]int64
	errs               map[string]error
	calls              atomic.Int32
	gotLimit, gotDays  int
}

func (f *fakeSource) fail(field string) error {
	f.calls.Add(1)
	return f.errs[field]
}

func (f *fakeSource) CountToday(ctx context.Context) (int64, error) {
	return f.today, f.fail(FieldToday)
}

func (f *fakeSource) CountWeek(ctx context.Context) (int64, error) {
	return f.week, f.fail(FieldWeek)
}

func (f *fakeSource) CountMonth(ctx context.Context) (int64, error) {
	return f.month, f.fail(FieldMonth)
}

func (f *fakeSource) TopQueries(ctx context.Context, limit int) ([]QueryCount, error) {
	f.gotLimit = limit
	return f.top, f.fail(FieldTopSearches)
}

func (f *fakeSource) DailyActivity(ctx context.Context, days int) ([]DailyActivity, error) {
	f.gotDays = days
	return f.activity, f.fail(FieldUserActivity)
}

func (f *fakeSource) FeedbackStats(ctx context.Context) (map[string]int64, error) {
	return f.feedback, f.fail(FieldFeedbackStats)
}

func TestSnapshotAssemblesAllFields(t *testing.T) {
	src := &fakeSource{
		today: 3, week: 12, month: 40,
		top:      []QueryCount{{Query: "how do I modify an order", Count: 15}},
		activity: []DailyActivity{{Date: "2026-10-18", Searches: 3}, {Date: "2026-10-17", Searches: 9}},
		feedback: map[string]int64{"positive": 4, "negative": 1},
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	snap, err := NewAggregator(src, m).Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), snap.TotalSearchesToday)
	assert.Equal(t, int64(12), snap.TotalSearchesWeek)
	assert.Equal(t, int64(40), snap.TotalSearchesMonth)
	assert.Equal(t, src.top, snap.TopSearches)
	assert.Equal(t, src.activity, snap.UserActivity)
	assert.Equal(t, src.feedback, snap.FeedbackStats)
	assert.Equal(t, TopSearchesLimit, src.gotLimit)
	assert.Equal(t, ActivityDays, src.gotDays)
	assert.Equal(t, int32(6), src.calls.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues("ok")))
}

func TestSnapshotEmptyStoreEncodesEmptyCollections(t *testing.T) {
	snap, err := NewAggregator(&fakeSource{}, nil).Snapshot(context.Background())
	require.NoError(t, err)

	assert.Zero(t, snap.TotalSearchesToday)
	assert.Zero(t, snap.TotalSearchesWeek)
	assert.Zero(t, snap.TotalSearchesMonth)
	assert.NotNil(t, snap.TopSearches)
	assert.Empty(t, snap.TopSearches)
	assert.NotNil(t, snap.UserActivity)
	assert.Empty(t, snap.UserActivity)
	assert.NotNil(t, snap.FeedbackStats)
	assert.Empty(t, snap.FeedbackStats)
}

func TestSnapshotFailsWholeOnAnyQueryError(t *testing.T) {
	for _, field := range []string{FieldToday, FieldWeek, FieldMonth, FieldTopSearches, FieldUserActivity, FieldFeedbackStats} {
		t.Run(field, func(t *testing.T) {
			src := &fakeSource{
				today: 1,
				errs:  map[string]error{field: errors.New("connection refused")},
			}
			reg := prometheus.NewRegistry()
			m := metrics.New(reg)

			snap, err := NewAggregator(src, m).Snapshot(context.Background())
			require.Error(t, err)
			assert.Nil(t, snap, "no partial snapshot on failure")
			assert.Contains(t, err.Error(), field+": connection refused")
			assert.Equal(t, float64(1), testutil.ToFloat64(m.AggregationFailures.WithLabelValues(field)))
			assert.Equal(t, float64(1), testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues("error")))
		})
	}
}

func TestFeedbackValid(t *testing.T) {
	assert.True(t, FeedbackPositive.Valid())
	assert.True(t, FeedbackNegative.Valid())
	assert.False(t, Feedback("meh").Valid())
	assert.False(t, Feedback("").Valid())
}
