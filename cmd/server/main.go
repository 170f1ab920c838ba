// Command server starts the AI Interview Assessor HTTP API.
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

	httpserver "github.com/fairyhunter13/ai-interview-assessor/internal/adapter/httpserver"
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
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if cfg.DBAutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			slog.Error("db migrate failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	assessRepo := postgres.NewAssessmentRepo(pool)
	candRepo := postgres.NewCandidateRepo(pool)
	reports := reportstore.NewFileStore(cfg.ReportsDir)

	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(postgres.PoolBeginner{Pool: pool}, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}
	if sweeper := app.NewStaleAssessmentSweeper(assessRepo, cfg.StaleAssessmentAge, cfg.StaleSweepInterval); sweeper != nil {
		go sweeper.Run(ctx)
	}

	producer, err := redpanda.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue client", slog.Any("error", err))
		}
	}()

	rdb, err := app.NewRedisClient(cfg)
	if err != nil {
		slog.Error("redis config invalid", slog.Any("error", err))
		os.Exit(1)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	// The server runs synchronous assessments itself; queued ones go to the worker.
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

	assessments := usecase.NewAssessmentService(assessRepo, candRepo, reports, producer, controller)
	dbCheck, queueCheck, cacheCheck := app.BuildReadinessChecks(pool, producer, rdb)
	srv := httpserver.NewServer(cfg, assessments, dbCheck, queueCheck, cacheCheck)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("provider", cfg.Provider()))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
