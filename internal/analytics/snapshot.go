package analytics

// Snapshot fields, also used as metric and span labels.
const (
	FieldToday         = "total_searches_today"
	FieldWeek          = "total_searches_week"
	FieldMonth         = "total_searches_month"
	FieldTopSearches   = "top_searches"
	FieldUserActivity  = "user_activity"
	FieldFeedbackStats = "feedback_stats"
)

const (
	// TopSearchesLimit caps top_searches.
	TopSearchesLimit = 10
	// ActivityDays is the number of calendar days, today included, covered
	// by user_activity.
	ActivityDays = 7
)

// Snapshot is the dashboard payload, recomputed from the chats table on
// every request. Each field reflects the table at the moment its own query
// ran; no cross-field snapshot isolation is taken.
type Snapshot struct {
	TotalSearchesToday int64            `json:"total_searches_today"`
	TotalSearchesWeek  int64            `json:"total_searches_week"`
	TotalSearchesMonth int64            `json:"total_searches_month"`
	TopSearches        []QueryCount     `json:"top_searches"`
	UserActivity       []DailyActivity  `json:"user_activity"`
	FeedbackStats      map[string]int64 `json:"feedback_stats"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// DailyActivity is the number of searches on one calendar day. Date is
// formatted YYYY-MM-DD.
type DailyActivity struct {
	Date     string `json:"date"`
	Searches int64  `json:"searches"`
}
