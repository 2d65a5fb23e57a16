// Package store implements analytics.Source on top of the chats table.
// Every method is a single read-only aggregate query; nothing is cached.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/postgres"
)

const (
	countTodaySQL = `SELECT COUNT(*) FROM chats WHERE created_at >= CURRENT_DATE`

	countWeekSQL = `SELECT COUNT(*) FROM chats WHERE created_at >= NOW() - INTERVAL '7 days'`

	countMonthSQL = `SELECT COUNT(*) FROM chats WHERE created_at >= DATE_TRUNC('month', CURRENT_DATE)`

	topQueriesSQL = `SELECT question, COUNT(*) AS count
		 FROM chats
		 WHERE created_at >= CURRENT_DATE - INTERVAL '30 days'
		 GROUP BY question
		 ORDER BY count DESC, MAX(created_at) DESC, question ASC
		 LIMIT $1`

	dailyActivitySQL = `SELECT TO_CHAR(DATE(created_at), 'YYYY-MM-DD') AS date, COUNT(*) AS searches
		 FROM chats
		 WHERE created_at >= CURRENT_DATE - ($1::int - 1) * INTERVAL '1 day'
		 GROUP BY DATE(created_at)
		 ORDER BY DATE(created_at) DESC`

	feedbackStatsSQL = `SELECT feedback, COUNT(*)
		 FROM chats
		 WHERE feedback IS NOT NULL
		 GROUP BY feedback`
)

// Store runs the dashboard queries against PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

var _ analytics.Source = (*Store)(nil)

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("analytics-store"),
	}
}

func (s *Store) CountToday(ctx context.Context) (int64, error) {
	return s.count(ctx, countTodaySQL, "today")
}

func (s *Store) CountWeek(ctx context.Context) (int64, error) {
	return s.count(ctx, countWeekSQL, "week")
}

func (s *Store) CountMonth(ctx context.Context) (int64, error) {
	return s.count(ctx, countMonthSQL, "month")
}

func (s *Store) count(ctx context.Context, query, window string) (int64, error) {
	var n int64
	if err := s.db.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting searches (%s): %w", window, err)
	}
	return n, nil
}

// TopQueries returns the most frequent questions of the last 30 days.
// Ties are broken by most recent use, then alphabetically.
func (s *Store) TopQueries(ctx context.Context, limit int) ([]analytics.QueryCount, error) {
	rows, err := s.db.DB.QueryContext(ctx, topQueriesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top searches: %w", err)
	}
	defer rows.Close()

	top := make([]analytics.QueryCount, 0, limit)
	for rows.Next() {
		var qc analytics.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scanning top search row: %w", err)
		}
		top = append(top, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top searches: %w", err)
	}
	return top, nil
}

// DailyActivity returns per-day search counts for the last days calendar
// days, today included, newest first. Days without searches are omitted.
func (s *Store) DailyActivity(ctx context.Context, days int) ([]analytics.DailyActivity, error) {
	rows, err := s.db.DB.QueryContext(ctx, dailyActivitySQL, days)
	if err != nil {
		return nil, fmt.Errorf("querying daily activity: %w", err)
	}
	defer rows.Close()

	activity := make([]analytics.DailyActivity, 0, days)
	for rows.Next() {
		var d analytics.DailyActivity
		if err := rows.Scan(&d.Date, &d.Searches); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		activity = append(activity, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily activity: %w", err)
	}
	return activity, nil
}

// FeedbackStats counts every rated search by label, across all time.
func (s *Store) FeedbackStats(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.DB.QueryContext(ctx, feedbackStatsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying feedback stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var (
			label string
			n     int64
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scanning feedback row: %w", err)
		}
		if !analytics.Feedback(label).Valid() {
			s.logger.Warn("unknown feedback label in chats", "label", label)
		}
		stats[label] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback stats: %w", err)
	}
	return stats, nil
}
