package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/postgres"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(postgres.NewFromDB(db)), mock
}

func TestCounts(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(countTodaySQL)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(countWeekSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta(countMonthSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))

	ctx := context.Background()
	today, err := s.CountToday(ctx)
	require.NoError(t, err)
	week, err := s.CountWeek(ctx)
	require.NoError(t, err)
	month, err := s.CountMonth(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 9, 30}, []int64{today, week, month})
}

func TestCountWrapsError(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(countWeekSQL)).WillReturnError(errors.New("connection reset"))

	_, err := s.CountWeek(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counting searches (week): connection reset")
}

func TestTopQueries(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(topQueriesSQL)).
		WithArgs(analytics.TopSearchesLimit).
		WillReturnRows(sqlmock.NewRows([]string{"question", "count"}).
			AddRow("how to modify an order", 15).
			AddRow("arrears interest", 4))

	top, err := s.TopQueries(context.Background(), analytics.TopSearchesLimit)
	require.NoError(t, err)
	assert.Equal(t, []analytics.QueryCount{
		{Query: "how to modify an order", Count: 15},
		{Query: "arrears interest", Count: 4},
	}, top)
}

func TestTopQueriesEmptyIsNotNil(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(topQueriesSQL)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"question", "count"}))

	top, err := s.TopQueries(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, top)
	assert.Empty(t, top)
}

func TestDailyActivity(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(dailyActivitySQL)).
		WithArgs(analytics.ActivityDays).
		WillReturnRows(sqlmock.NewRows([]string{"date", "searches"}).
			AddRow("2026-10-18", 3).
			AddRow("2026-10-16", 7))

	activity, err := s.DailyActivity(context.Background(), analytics.ActivityDays)
	require.NoError(t, err)
	assert.Equal(t, []analytics.DailyActivity{
		{Date: "2026-10-18", Searches: 3},
		{Date: "2026-10-16", Searches: 7},
	}, activity)
}

func TestDailyActivityRowError(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(dailyActivitySQL)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"date", "searches"}).
			AddRow("2026-10-18", 3).
			RowError(0, errors.New("stream broken")))

	_, err := s.DailyActivity(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating daily activity")
}

func TestFeedbackStats(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(feedbackStatsSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"feedback", "count"}).
			AddRow("positive", 12).
			AddRow("negative", 3))

	stats, err := s.FeedbackStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"positive": 12, "negative": 3}, stats)
}

func TestFeedbackStatsQueryError(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(feedbackStatsSQL)).WillReturnError(errors.New("relation \"chats\" does not exist"))

	stats, err := s.FeedbackStats(context.Background())
	require.Error(t, err)
	assert.Nil(t, stats)
}
