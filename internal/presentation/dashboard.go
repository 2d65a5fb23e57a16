package presentation

import (
	"fmt"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
)

const maxQueryRunes = 60

type TopQueryRow struct {
	Rank  int
	Query string
	Count int64
	Bar   string
}

type ActivityRow struct {
	Label    string
	Searches int64
	Bar      string
}

// DashboardView is the template model for dashboard.html.
type DashboardView struct {
	Today         int64
	Week          int64
	Month         int64
	FeedbackTotal int64

	TopQueries []TopQueryRow
	Activity   []ActivityRow

	Positive         int64
	Negative         int64
	SatisfactionRate string

	AvgPerDay     int64
	PeakDay       int64
	UniqueQueries int
}

// BuildDashboardView derives every displayed value from snap. Bars are
// scaled to the first top query and to the busiest day respectively.
func BuildDashboardView(snap *analytics.Snapshot) DashboardView {
	positive := snap.FeedbackStats[string(analytics.FeedbackPositive)]
	negative := snap.FeedbackStats[string(analytics.FeedbackNegative)]

	view := DashboardView{
		Today:            snap.TotalSearchesToday,
		Week:             snap.TotalSearchesWeek,
		Month:            snap.TotalSearchesMonth,
		FeedbackTotal:    positive + negative,
		Positive:         positive,
		Negative:         negative,
		SatisfactionRate: satisfactionRate(positive, negative),
		UniqueQueries:    len(snap.TopSearches),
		TopQueries:       make([]TopQueryRow, 0, len(snap.TopSearches)),
		Activity:         make([]ActivityRow, 0, len(snap.UserActivity)),
	}

	if len(snap.TopSearches) > 0 {
		top := snap.TopSearches[0].Count
		for i, qc := range snap.TopSearches {
			view.TopQueries = append(view.TopQueries, TopQueryRow{
				Rank:  i + 1,
				Query: truncate(qc.Query, maxQueryRunes),
				Count: qc.Count,
				Bar:   barWidth(qc.Count, top),
			})
		}
	}

	if len(snap.UserActivity) > 0 {
		var total, peak int64
		for _, day := range snap.UserActivity {
			total += day.Searches
			peak = max(peak, day.Searches)
		}
		for _, day := range snap.UserActivity {
			view.Activity = append(view.Activity, ActivityRow{
				Label:    dayLabel(day.Date),
				Searches: day.Searches,
				Bar:      barWidth(day.Searches, peak),
			})
		}
		view.PeakDay = peak
		view.AvgPerDay = int64(math.Round(float64(total) / float64(len(snap.UserActivity))))
	}

	return view
}

func satisfactionRate(positive, negative int64) string {
	total := positive + negative
	if positive == 0 || total == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d%%", int64(math.Round(float64(positive)/float64(total)*100)))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func barWidth(n, of int64) string {
	if of <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(of)*100)
}

// dayLabel turns 2026-10-18 into "Oct 18". Unparseable dates are shown as-is.
func dayLabel(date string) string {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return t.Format("Jan 2")
}
