// Command server starts the fit-scoring HTTP API.
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

	"github.com/redis/go-redis/v9"

	"github.com/kerjaflow/fitscore/internal/adapter/ai/anthropic"
	"github.com/kerjaflow/fitscore/internal/adapter/ai/stub"
	"github.com/kerjaflow/fitscore/internal/adapter/cache"
	httpserver "github.com/kerjaflow/fitscore/internal/adapter/httpserver"
	"github.com/kerjaflow/fitscore/internal/adapter/observability"
	"github.com/kerjaflow/fitscore/internal/adapter/queue/redpanda"
	"github.com/kerjaflow/fitscore/internal/adapter/repo/postgres"
	"github.com/kerjaflow/fitscore/internal/adapter/scraper/apify"
	"github.com/kerjaflow/fitscore/internal/app"
	"github.com/kerjaflow/fitscore/internal/config"
	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/usecase"
)

// redisAdapter narrows *redis.Client to the readiness interface.
type redisAdapter struct{ rdb *redis.Client }

func (r redisAdapter) Ping(ctx context.Context) app.RedisPingResult { return r.rdb.Ping(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
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

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Repositories
	resumeRepo := postgres.NewResumeRepo(pool)
	listingRepo := postgres.NewListingRepo(pool)
	savedRepo := postgres.NewSavedJobRepo(pool)
	rankingRepo := postgres.NewRankingRepo(pool)
	documentRepo := postgres.NewDocumentRepo(pool)
	analysisRepo := postgres.NewAnalysisRepo(pool)

	// Data retention
	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(pool, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started",
			slog.Int("retention_days", cfg.DataRetentionDays),
			slog.Duration("interval", cfg.CleanupInterval))
	}

	// Redis-backed search cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()
	searchCache := cache.New(rdb, cfg.SearchCacheTTL)

	// Queue producer
	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	// AI clients: the full analysis model and the cheaper ranking model share
	// one implementation parameterized by model. Dev without an API key runs
	// on the deterministic stub.
	var analysisAI, rankAI domain.AIClient
	if cfg.AnthropicAPIKey == "" && cfg.IsDev() {
		slog.Warn("ANTHROPIC_API_KEY not set, using stub AI client")
		analysisAI = stub.New()
		rankAI = stub.New()
	} else {
		analysisAI = anthropic.New(cfg, cfg.AnalysisModel)
		rankAI = anthropic.New(cfg, cfg.RankModel)
	}
	scraper := apify.New(cfg)

	// Usecases
	resumeSvc := usecase.NewResumeService(resumeRepo, int(cfg.MaxInputBytes))
	searchSvc := usecase.NewSearchService(scraper, searchCache, listingRepo, cfg.SearchMaxItems)
	rankSvc := usecase.NewRankService(rankingRepo, listingRepo, resumeRepo, rankAI, cfg.RankConcurrency)
	savedSvc := usecase.NewSavedJobService(savedRepo, listingRepo)
	documentSvc := usecase.NewDocumentService(documentRepo, listingRepo, resumeRepo, analysisAI)
	analyzeSvc := usecase.NewAnalyzeService(analysisRepo, resumeRepo, producer, analysisAI)

	dbCheck, redisCheck := app.BuildReadinessChecks(pool, redisAdapter{rdb})

	srv := &httpserver.Server{
		Cfg:        cfg,
		Resumes:    resumeSvc,
		Search:     searchSvc,
		Rank:       rankSvc,
		Saved:      savedSvc,
		Documents:  documentSvc,
		Analyses:   analyzeSvc,
		DBCheck:    dbCheck,
		RedisCheck: redisCheck,
	}
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
