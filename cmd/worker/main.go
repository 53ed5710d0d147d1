// Command worker consumes analysis tasks from the queue, runs the extraction
// call and the scoring engine, and writes results back to the database.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kerjaflow/fitscore/internal/adapter/ai/anthropic"
	"github.com/kerjaflow/fitscore/internal/adapter/ai/stub"
	"github.com/kerjaflow/fitscore/internal/adapter/observability"
	"github.com/kerjaflow/fitscore/internal/adapter/queue/redpanda"
	"github.com/kerjaflow/fitscore/internal/adapter/repo/postgres"
	"github.com/kerjaflow/fitscore/internal/app"
	"github.com/kerjaflow/fitscore/internal/config"
	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/usecase"
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
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
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

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	pool, err := pgxpool.New(context.Background(), cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	resumeRepo := postgres.NewResumeRepo(pool)
	analysisRepo := postgres.NewAnalysisRepo(pool)

	// Producer with a transactional ID distinct from the HTTP server's so the
	// two processes never conflict.
	producer, err := redpanda.NewProducerWithTransactionalID(cfg.KafkaBrokers, "fitscore-worker-producer")
	if err != nil {
		slog.Error("queue producer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	var analysisAI domain.AIClient = anthropic.New(cfg, cfg.AnalysisModel)
	if cfg.AnthropicAPIKey == "" && cfg.IsDev() {
		slog.Warn("ANTHROPIC_API_KEY not set, using stub AI client")
		analysisAI = stub.New()
	}
	analyzeSvc := usecase.NewAnalyzeService(analysisRepo, resumeRepo, producer, analysisAI)

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, "fitscore-workers", analyzeSvc, cfg.ConsumerMaxConcurrency)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", slog.Any("error", err))
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Sweep analyses a crashed worker left behind. The cutoff sits above the
	// read-side stale window so the sweeper only catches rows nobody polls.
	if sweeper := app.NewStaleAnalysisSweeper(analysisRepo, 3*time.Minute, time.Minute); sweeper != nil {
		go sweeper.Run(ctx)
	}

	slog.Info("starting redpanda consumer")
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("consumer error", slog.Any("error", err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	slog.Info("signal received, shutting down", slog.String("signal", sig.String()))
	stop()
	slog.Info("worker stopped")
}
