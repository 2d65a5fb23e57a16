// Command recorder consumes chat events from Kafka and writes them to the
// chats table read by the analytics endpoint.
//
// Usage:
//
//	go run ./cmd/recorder [-config configs/development.yaml] [-migrate]
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/recorder"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/migrations"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	runMigrations := flag.Bool("migrate", false, "apply database migrations before consuming")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting recorder", "topic", cfg.Kafka.Topics.ChatEvents, "group", cfg.Kafka.ConsumerGroup)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		slog.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *runMigrations {
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	checker := health.NewChecker(cfg.Server.HealthCheckTimeout)
	checker.Critical("postgres", db.Ping)

	// Without Redis every event is written; the writes are idempotent.
	var deduper recorder.Deduper
	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, de-duplication disabled", "error", err)
	} else {
		defer rdb.Close()
		deduper = rdb
		checker.Optional("redis", rdb.Ping)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, reg)
	}

	rec := recorder.New(recorder.NewChatWriter(db), deduper, recorder.Config{
		DedupeTTL:     cfg.Redis.DedupeTTL,
		WriteAttempts: cfg.Recorder.WriteAttempts,
		WriteBackoff:  cfg.Recorder.WriteBackoff,
		WriteTimeout:  cfg.Recorder.WriteTimeout,
	}, m)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ChatEvents, rec.HandleMessage)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("recorder health server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}
	if shutdownMetrics != nil {
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}
	slog.Info("recorder stopped")
}
