package presentation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
)

func TestBuildDashboardView(t *testing.T) {
	snap := &analytics.Snapshot{
		TotalSearchesToday: 4,
		TotalSearchesWeek:  20,
		TotalSearchesMonth: 51,
		TopSearches: []analytics.QueryCount{
			{Query: "modify order", Count: 8},
			{Query: strings.Repeat("é", 70), Count: 2},
		},
		UserActivity: []analytics.DailyActivity{
			{Date: "2026-10-18", Searches: 4},
			{Date: "2026-10-17", Searches: 8},
			{Date: "2026-10-15", Searches: 3},
		},
		FeedbackStats: map[string]int64{"positive": 2, "negative": 1},
	}

	view := BuildDashboardView(snap)

	assert.Equal(t, int64(3), view.FeedbackTotal)
	assert.Equal(t, "67%", view.SatisfactionRate)
	assert.Equal(t, int64(5), view.AvgPerDay)
	assert.Equal(t, int64(8), view.PeakDay)
	assert.Equal(t, 2, view.UniqueQueries)

	require.Len(t, view.TopQueries, 2)
	assert.Equal(t, 1, view.TopQueries[0].Rank)
	assert.Equal(t, "modify order", view.TopQueries[0].Query)
	assert.Equal(t, "100.0%", view.TopQueries[0].Bar)
	assert.Equal(t, "25.0%", view.TopQueries[1].Bar)
	assert.Equal(t, strings.Repeat("é", 60)+"...", view.TopQueries[1].Query)

	require.Len(t, view.Activity, 3)
	assert.Equal(t, "Oct 18", view.Activity[0].Label)
	assert.Equal(t, "50.0%", view.Activity[0].Bar)
	assert.Equal(t, "100.0%", view.Activity[1].Bar)
}

func TestBuildDashboardViewEmpty(t *testing.T) {
	view := BuildDashboardView(&analytics.Snapshot{FeedbackStats: map[string]int64{}})

	assert.Equal(t, "N/A", view.SatisfactionRate)
	assert.Zero(t, view.AvgPerDay)
	assert.Zero(t, view.PeakDay)
	assert.Empty(t, view.TopQueries)
	assert.Empty(t, view.Activity)
}

func TestSatisfactionRate(t *testing.T) {
	assert.Equal(t, "N/A", satisfactionRate(0, 5))
	assert.Equal(t, "100%", satisfactionRate(3, 0))
	assert.Equal(t, "50%", satisfactionRate(1, 1))
}

func TestDayLabelFallsBack(t *testing.T) {
	assert.Equal(t, "Jan 2", dayLabel("2026-01-02"))
	assert.Equal(t, "yesterday", dayLabel("yesterday"))
}

func TestDashboardTemplate(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Dashboard(&buf, BuildDashboardView(&analytics.Snapshot{})))
	html := buf.String()
	assert.Contains(t, html, "No search data available yet")
	assert.Contains(t, html, "No activity data available yet")
	assert.Contains(t, html, "N/A")

	buf.Reset()
	require.NoError(t, r.Dashboard(&buf, BuildDashboardView(&analytics.Snapshot{
		TopSearches: []analytics.QueryCount{{Query: "arrears", Count: 2}},
	})))
	assert.Contains(t, buf.String(), "#1 arrears")
	assert.Contains(t, buf.String(), "width: 100.0%")
}
