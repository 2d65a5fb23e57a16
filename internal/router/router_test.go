package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/chat"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/presentation"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/middleware"
)

type staticSnapshots struct{}

func (staticSnapshots) Snapshot(ctx context.Context) (*analytics.Snapshot, error) {
	return &analytics.Snapshot{
		TotalSearchesToday: 2,
		TopSearches:        []analytics.QueryCount{},
		UserActivity:       []analytics.DailyActivity{},
		FeedbackStats:      map[string]int64{},
	}, nil
}

type discardTracker struct{}

func (discardTracker) Track(analytics.ChatEvent) bool { return true }

func newRouter(t *testing.T) (http.Handler, *metrics.Metrics) {
	t.Helper()
	renderer, err := presentation.NewRenderer()
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())

	return New(Handlers{
		Analytics:    analytics.NewHandler(staticSnapshots{}),
		Presentation: presentation.NewHandler(renderer, staticSnapshots{}, m),
		Chat:         chat.New(discardTracker{}),
		Health:       health.NewChecker(time.Second),
	}, m, time.Second), m
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestAdminAnalyticsRoute(t *testing.T) {
	h, m := newRouter(t)

	rec := do(h, http.MethodGet, "/api/admin", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_searches_today":2`)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/admin", "200")))
}

func TestAdminAnalyticsRejectsOtherMethods(t *testing.T) {
	h, _ := newRouter(t)
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec := do(h, method, "/api/admin", `{"drop":"table"}`)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String(), method)
	}
}

func TestPagesAndChatRoutes(t *testing.T) {
	h, _ := newRouter(t)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/admin", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/results/render", `{"citations":[]}`).Code)
	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/api/chats", `{"question":"arrears"}`).Code)
	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost,
		"/api/chats/0b6f2f52-4d0c-4c1b-9a52-2f8f7c9c1e11/feedback", `{"feedback":"positive"}`).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/unknown", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodGet, "/api/results/render", "").Code)
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func TestChatRoutesRateLimited(t *testing.T) {
	renderer, err := presentation.NewRenderer()
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	h := New(Handlers{
		Analytics:    analytics.NewHandler(staticSnapshots{}),
		Presentation: presentation.NewHandler(renderer, staticSnapshots{}, m),
		Chat:         chat.New(discardTracker{}),
		Health:       health.NewChecker(time.Second),
		ChatRateLimit: &middleware.RateLimitConfig{
			Limiter:    denyAll{},
			RetryAfter: time.Minute,
		},
	}, m, time.Second)

	rec := do(h, http.MethodPost, "/api/chats", `{"question":"leave policy"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitedTotal.WithLabelValues("POST /api/chats")))

	rec = do(h, http.MethodGet, "/api/admin", "")
	assert.Equal(t, http.StatusOK, rec.Code, "analytics is not throttled")
}
