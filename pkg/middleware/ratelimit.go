package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
)

var errRateLimited = apperrors.New(apperrors.ErrRateLimited, 0, "rate limit exceeded")

// Allower decides whether the client identified by key may proceed.
type Allower interface {
	Allow(key string) bool
}

type RateLimitConfig struct {
	Limiter Allower
	// RetryAfter is advertised to throttled clients, rounded up to whole
	// seconds.
	RetryAfter time.Duration
	// TrustForwardedFor keys clients by the last X-Forwarded-For hop, the
	// address a trusted reverse proxy appended. Leave it off unless such a
	// proxy fronts the server; otherwise clients pick their own key.
	TrustForwardedFor bool
}

// RateLimit rejects requests with 429 once the client's budget is spent.
// m may be nil.
func RateLimit(cfg RateLimitConfig, m *metrics.Metrics) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Max(1, math.Ceil(cfg.RetryAfter.Seconds()))))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Limiter.Allow(clientKey(r, cfg.TrustForwardedFor)) {
				next.ServeHTTP(w, r)
				return
			}
			if m != nil {
				m.RateLimitedTotal.WithLabelValues(routeLabel(r)).Inc()
			}
			w.Header().Set("Retry-After", retryAfter)
			writeError(w, errRateLimited)
		})
	}
}

func clientKey(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			hops := strings.Split(fwd, ",")
			if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
				return last
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
