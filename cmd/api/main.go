package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/user/sitewatch-service/internal/adapter/chromedp_scanner"
	"github.com/user/sitewatch-service/internal/adapter/httpdownload"
	"github.com/user/sitewatch-service/internal/adapter/memory"
	"github.com/user/sitewatch-service/internal/adapter/postgres"
	redis_adapter "github.com/user/sitewatch-service/internal/adapter/redis"
	"github.com/user/sitewatch-service/internal/adapter/sqlite"
	"github.com/user/sitewatch-service/internal/adapter/telegram"
	"github.com/user/sitewatch-service/internal/delivery/http/handler"
	"github.com/user/sitewatch-service/internal/delivery/http/router"
	"github.com/user/sitewatch-service/internal/repository"
	"github.com/user/sitewatch-service/internal/usecase"
	"github.com/user/sitewatch-service/pkg/config"
	"github.com/user/sitewatch-service/pkg/logger"
	"github.com/user/sitewatch-service/pkg/metrics"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(".env")
	if err != nil {
		// The logger is configured from cfg, so fall back to a default one.
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("could not load config", zap.Error(err))
	}

	// --- Logger ---
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("could not build logger", zap.Error(err))
	}
	defer log.Sync()

	// --- Metrics ---
	metrics.Init(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	var (
		siteRepo repository.SiteRepository
		logRepo  repository.SiteLogRepository
	)
	switch cfg.DBDriver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.PostgresURL, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		siteRepo = postgres.NewSiteRepo(pool)
		logRepo = postgres.NewSiteLogRepo(pool)
	default:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, log)
		if err != nil {
			log.Fatal("failed to open sqlite database", zap.Error(err))
		}
		defer db.Close()
		siteRepo = sqlite.NewSiteRepo(db)
		logRepo = sqlite.NewSiteLogRepo(db)
	}
	healthDeps := map[string]handler.Pinger{"database": siteRepo}

	// --- Site locks ---
	var locker repository.SiteLocker = memory.NewSiteLockRepo()
	if cfg.RedisAddr != "" {
		rdb, err := redis_adapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		locker = redis_adapter.NewSiteLockRepo(rdb)
		healthDeps["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
	}

	// --- Collaborators ---
	notifier, err := telegram.NewNotifier(telegram.Options{
		APIURL:     cfg.TelegramAPIURL,
		BotToken:   cfg.TelegramBotToken,
		ChatID:     cfg.TelegramChatID,
		RatePerSec: cfg.TelegramRatePerSec,
	}, log)
	if err != nil {
		log.Fatal("failed to configure telegram notifier", zap.Error(err))
	}

	scanner, err := chromedp_scanner.NewChromedpScanner(chromedp_scanner.Options{
		PageLoadTimeout: cfg.PageLoadTimeout(),
		SettleDelay:     cfg.PageSettleDelay(),
		ScreenshotDir:   cfg.ScreenshotDir,
	}, log)
	if err != nil {
		log.Fatal("failed to start page scanner", zap.Error(err))
	}
	defer scanner.Close()

	fetcher := httpdownload.NewFetcher(cfg.DownloadDir, cfg.DownloadTimeout(), log)

	// --- Use Cases ---
	monitoring := usecase.NewMonitoringState(cfg.MonitoringEnabled)
	dispatcher := usecase.NewAlertDispatcher(notifier, fetcher, log)
	recorder := usecase.NewLogRecorder(logRepo, cfg.LogRetention, log)
	checker := usecase.NewSiteChecker(siteRepo, scanner, dispatcher, recorder, monitoring, usecase.CheckOptions{
		TakeScreenshots:  cfg.TakeScreenshots,
		HashChangeAlerts: cfg.HashChangeAlerts,
		RecoveryAlerts:   cfg.RecoveryAlerts,
	}, log)
	scheduler := usecase.NewScheduler(siteRepo, checker, locker, monitoring, usecase.SchedulerOptions{
		TickInterval:        cfg.TickInterval(),
		MaxConcurrentChecks: cfg.MaxConcurrentChecks,
	}, log)
	siteManager := usecase.NewSiteManager(siteRepo, logRepo, cfg.LogRetention, log)

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(ctx)
	}()

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(siteManager, scheduler, dispatcher, healthDeps, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server started", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("could not start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// An in-flight check finishes under its own timeouts before the stores close.
	select {
	case <-schedulerDone:
	case <-time.After(cfg.PageLoadTimeout() + cfg.PageSettleDelay() + cfg.DownloadTimeout()):
		log.Warn("scheduler did not stop in time")
	}

	log.Info("server exiting")
}
