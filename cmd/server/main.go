// Command server runs the policy-search web service.
//
// It serves the admin analytics endpoint (GET /api/admin), the HTML admin
// dashboard, the search-results renderer, and the chat intake endpoints that
// publish search and feedback events to Kafka for the recorder.
//
// Usage:
//
//	go run ./cmd/server [-config configs/development.yaml] [-migrate]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/chat"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/presentation"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/router"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/migrations"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	runMigrations := flag.Bool("migrate", false, "apply database migrations before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting server", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One pool for the whole process; connections are dialed on first use.
	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		slog.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pingErr := resilience.Retry(ctx, "postgres-ping", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
	}, func() error {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return db.Ping(pctx)
	})
	if pingErr != nil {
		slog.Warn("postgres not reachable at startup, serving anyway", "error", pingErr)
	}

	if *runMigrations {
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, reg)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ChatEvents)
	collector := analytics.NewCollector(producer, analytics.CollectorConfig{
		BufferSize:       cfg.Web.CollectorBuffer,
		FailureThreshold: cfg.Web.PublishFailureThreshold,
		Cooldown:         cfg.Web.PublishCooldown,
	}, m)
	collectorCtx, cancelCollector := context.WithCancel(context.Background())
	collector.Start(collectorCtx)

	aggregator := analytics.NewAggregator(store.New(db), m)

	renderer, err := presentation.NewRenderer()
	if err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker(cfg.Server.HealthCheckTimeout)
	checker.Critical("postgres", db.Ping)
	checker.Optional("kafka-publish", collector.PublishCheck)

	handlers := router.Handlers{
		Analytics:    analytics.NewHandler(aggregator),
		Presentation: presentation.NewHandler(renderer, aggregator, m),
		Chat:         chat.New(collector),
		Health:       checker,
	}
	if cfg.Web.ChatRateLimit > 0 && cfg.Web.ChatRateWindow > 0 {
		limiter := ratelimit.New(cfg.Web.ChatRateLimit, cfg.Web.ChatRateWindow)
		go limiter.Run(ctx, cfg.Web.ChatRateWindow)
		handlers.ChatRateLimit = &middleware.RateLimitConfig{
			Limiter:           limiter,
			RetryAfter:        cfg.Web.ChatRateWindow,
			TrustForwardedFor: cfg.Web.TrustForwardedFor,
		}
	}
	handler := router.New(handlers, m, cfg.Web.RenderTimeout)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// ListenAndServe returns as soon as Shutdown begins; wait for in-flight
	// handlers before closing the collector they publish into.
	<-shutdownDone
	cancelCollector()
	collector.Close()
	if err := producer.Close(); err != nil {
		slog.Error("failed to close kafka producer", "error", err)
	}
	slog.Info("server stopped")
}
