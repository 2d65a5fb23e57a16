// Package router wires the HTTP routes of the server and applies the
// middleware chain (RequestID → Metrics).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/chat"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/presentation"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/middleware"
)

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Analytics    http.Handler
	Presentation *presentation.Handler
	Chat         *chat.Handler
	Health       *health.Checker
	// ChatRateLimit throttles the chat intake routes per client. Nil
	// disables limiting.
	ChatRateLimit *middleware.RateLimitConfig
}

// New builds the server's HTTP handler.
//
// Route table:
//
//	ANY    /api/admin                   → analytics snapshot (non-GET → 405 JSON)
//	GET    /admin                       → dashboard page
//	POST   /api/results/render          → results HTML fragment
//	POST   /api/chats                   → record a search
//	POST   /api/chats/{id}/feedback     → record feedback
//	GET    /health/live, /health/ready  → health checks
//
// m may be nil, in which case no request metrics are recorded.
func New(h Handlers, m *metrics.Metrics, renderTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	// Registered without a method so the handler owns the 405 body.
	mux.Handle("/api/admin", h.Analytics)
	mux.HandleFunc("GET /admin", h.Presentation.Dashboard)

	var render http.Handler = http.HandlerFunc(h.Presentation.RenderResults)
	if renderTimeout > 0 {
		render = middleware.Timeout(renderTimeout)(render)
	}
	mux.Handle("POST /api/results/render", render)

	throttle := func(next http.HandlerFunc) http.Handler { return next }
	if h.ChatRateLimit != nil {
		limit := middleware.RateLimit(*h.ChatRateLimit, m)
		throttle = func(next http.HandlerFunc) http.Handler { return limit(next) }
	}
	mux.Handle("POST /api/chats", throttle(h.Chat.Search))
	mux.Handle("POST /api/chats/{id}/feedback", throttle(h.Chat.Feedback))

	mux.HandleFunc("GET /health/live", h.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", h.Health.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	return chain
}
