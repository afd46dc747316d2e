package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"scrapegen/config"
	"scrapegen/internal/agent"
	"scrapegen/internal/fetch"
	"scrapegen/internal/health"
	"scrapegen/internal/infrastructure/sqlite"
	ctxlog "scrapegen/internal/log"
	"scrapegen/internal/metrics"
	"scrapegen/internal/oracle"
	"scrapegen/internal/sandbox"
	httptransport "scrapegen/internal/transport/http"
	"scrapegen/internal/transport/http/handler"
	"scrapegen/internal/usecase"
	"scrapegen/internal/validate"
	"scrapegen/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	ws, err := workspace.NewManager(cfg.WorkDir, cfg.DownloadsDir, logger)
	if err != nil {
		log.Fatalf("workspace: %v", err)
	}
	if cfg.CleanupOnStart {
		if err := ws.Reset(); err != nil {
			log.Fatalf("workspace reset: %v", err)
		}
	}

	jobRepo := sqlite.NewJobRepository(db)
	attemptRepo := sqlite.NewAttemptRepository(db)

	fetcher := fetch.NewHTTPFetcher(time.Duration(cfg.FetchTimeoutSec) * time.Second)
	generator := oracle.NewGemini(oracle.GeminiConfig{
		APIKeys: cfg.GeminiAPIKeys,
		Model:   cfg.GeminiModel,
	}, logger)
	runner := sandbox.NewExec(
		time.Duration(cfg.InstallTimeoutSec)*time.Second,
		time.Duration(cfg.RunTimeoutSec)*time.Second,
		logger,
	)
	runner.Python = cfg.PythonBin
	runner.Pip = cfg.PipBin
	validator := validate.New()
	validator.CountRatio = cfg.ValidatorCountRatio

	sweepMaxAge := time.Duration(cfg.CleanupMaxAgeHrs) * time.Hour
	jobAgent := agent.New(fetcher, generator, runner, validator, ws, agent.Config{
		MaxAttempts: cfg.MaxAttempts,
		SweepMaxAge: sweepMaxAge,
	}, logger)

	scrapeUsecase := usecase.NewScrapeUsecase(jobAgent, jobRepo, attemptRepo, logger)

	metrics.Register()
	checker := health.NewChecker(db, cfg.PythonBin, cfg.PipBin, logger, prometheus.DefaultRegisterer)

	scrapeHandler := handler.NewScrapeHandler(scrapeUsecase, logger)
	jobsHandler := handler.NewJobsHandler(scrapeUsecase, logger)
	downloadHandler := handler.NewDownloadHandler(ws, logger)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, scrapeHandler, jobsHandler, downloadHandler, checker),
	}
	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)

	// Jobs also sweep opportunistically; the cron keeps idle instances tidy.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@hourly", func() { ws.Sweep(sweepMaxAge) }); err != nil {
		log.Fatalf("cron: %v", err)
	}
	sweeper.Start()

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	<-sweeper.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
