// Package main provides the worker application entry point.
// The worker runs queued assessments from the Redpanda topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/reportstore"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-assessor/internal/app"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Job and AI metrics are scraped from a dedicated port.
	observability.InitMetrics()
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerMetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv), slog.Int("concurrency", cfg.ConsumerMaxConcurrency))

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	rdb, err := app.NewRedisClient(cfg)
	if err != nil {
		slog.Error("redis config invalid", slog.Any("error", err))
		os.Exit(1)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	gen, closeGen, err := app.BuildGenerator(ctx, cfg, rdb)
	if err != nil {
		slog.Error("text generator init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = closeGen() }()
	controller, err := app.BuildController(cfg, gen)
	if err != nil {
		slog.Error("pipeline init failed", slog.Any("error", err))
		os.Exit(1)
	}

	// The producer publishes dead letters; the worker never enqueues new jobs.
	producer, err := redpanda.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		slog.Error("queue producer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	assessments := usecase.NewAssessmentService(
		postgres.NewAssessmentRepo(pool),
		postgres.NewCandidateRepo(pool),
		reportstore.NewFileStore(cfg.ReportsDir),
		producer,
		controller,
	)

	consumer, err := redpanda.NewConsumer(redpanda.ConsumerConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     cfg.KafkaGroupID,
		Topic:       cfg.KafkaTopic,
		Concurrency: cfg.ConsumerMaxConcurrency,
		Retry:       cfg.GetRetryConfig(),
		Retryable:   usecase.IsRetryable,
	}, assessments, producer)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer consumer.Close()

	slog.Info("worker started, waiting for jobs")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker error", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	slog.Info("worker stopped")
}
