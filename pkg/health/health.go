// Package health serves liveness and readiness for the chat server and the
// recorder. Readiness runs every registered dependency check concurrently,
// each under its own deadline.
//
// Critical dependencies (Postgres) take the service out of rotation when
// they fail. Optional ones (Redis de-duplication, the Kafka publish path)
// only mark it degraded, because the service keeps working without them.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/resilience"
)

const defaultCheckTimeout = 2 * time.Second

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Check returns nil when the dependency is usable. It must honour ctx.
type Check func(ctx context.Context) error

// Result is the outcome of one dependency check.
type Result struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Critical  bool   `json:"critical"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// Report is the readiness document served on /health/ready. Checks keep
// registration order.
type Report struct {
	Status    Status    `json:"status"`
	Checks    []Result  `json:"checks"`
	CheckedAt time.Time `json:"checkedAt"`
}

type dependency struct {
	name     string
	check    Check
	critical bool
}

// Checker holds the registered dependency checks.
type Checker struct {
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu   sync.RWMutex
	deps []dependency
	last Status
}

// NewChecker creates a Checker giving each check at most timeout. A
// non-positive timeout uses two seconds.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &Checker{
		timeout: timeout,
		now:     time.Now,
		logger:  logger.WithComponent("health"),
		last:    StatusUp,
	}
}

// Critical registers a dependency whose failure makes the service unready.
func (c *Checker) Critical(name string, check Check) {
	c.register(dependency{name: name, check: check, critical: true})
}

// Optional registers a dependency whose failure only degrades the service.
func (c *Checker) Optional(name string, check Check) {
	c.register(dependency{name: name, check: check})
}

func (c *Checker) register(d dependency) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps = append(c.deps, d)
}

// Run executes every check and folds the results: any critical failure is
// down, any optional failure is degraded.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	deps := append([]dependency(nil), c.deps...)
	c.mu.RUnlock()

	results := make([]Result, len(deps))
	var g errgroup.Group
	for i, d := range deps {
		g.Go(func() error {
			results[i] = c.runOne(ctx, d)
			return nil
		})
	}
	g.Wait()

	report := Report{Status: StatusUp, Checks: results, CheckedAt: c.now().UTC()}
	for _, r := range results {
		switch {
		case r.Status == StatusUp:
		case r.Critical:
			report.Status = StatusDown
		case report.Status == StatusUp:
			report.Status = StatusDegraded
		}
	}
	c.noteTransition(report)
	return report
}

func (c *Checker) runOne(ctx context.Context, d dependency) Result {
	start := c.now()
	err := resilience.WithTimeout(ctx, c.timeout, "health "+d.name, d.check)
	r := Result{
		Name:      d.name,
		Status:    StatusUp,
		Critical:  d.critical,
		LatencyMS: c.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		r.Status = StatusDown
		r.Error = err.Error()
	}
	return r
}

// noteTransition logs readiness only when it changes, so a polling load
// balancer does not flood the log with the same failure.
func (c *Checker) noteTransition(report Report) {
	c.mu.Lock()
	prev := c.last
	c.last = report.Status
	c.mu.Unlock()
	if prev == report.Status {
		return
	}
	var failing []string
	for _, r := range report.Checks {
		if r.Status != StatusUp {
			failing = append(failing, r.Name)
		}
	}
	if report.Status == StatusUp {
		c.logger.Info("readiness restored", "previous", prev)
		return
	}
	c.logger.Warn("readiness changed", "status", report.Status, "previous", prev, "failing", failing)
}

// LiveHandler reports that the process is serving; it runs no checks.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 200 while the service is up or degraded and 503
// once a critical dependency is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
