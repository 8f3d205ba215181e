package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MightComeback/garmin-health-sync/internal/config"
	syncengine "github.com/MightComeback/garmin-health-sync/internal/domain/sync"
	"github.com/MightComeback/garmin-health-sync/internal/garmin"
	"github.com/MightComeback/garmin-health-sync/internal/metrics"
	"github.com/MightComeback/garmin-health-sync/internal/sqlite"
	"github.com/MightComeback/garmin-health-sync/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	sessionStore := sqlite.NewSessionStore(db)
	activityRepo := sqlite.NewActivityRepository(db)
	dailyRepo := sqlite.NewDailyMetricRepository(db)
	syncLogRepo := sqlite.NewSyncLogRepository(db)

	var client garmin.Client = garmin.NewHTTPClient(garmin.DefaultSSOURL, garmin.DefaultAPIURL, logger)
	client = garmin.NewBreakerClient(client, logger, func(state string) {
		metrics.SetBreakerState("garmin-api", state)
	})

	syncSvc := syncengine.NewService(
		client,
		sessionStore,
		activityRepo,
		dailyRepo,
		syncengine.Credentials{
			Username: cfg.Garmin.Username,
			Password: cfg.Garmin.Password,
		},
		syncengine.Options{
			ActivityLimit: cfg.Sync.ActivityLimit,
			DayWindow:     cfg.Sync.DayWindow,
		},
		logger,
	)

	scheduler := syncengine.NewScheduler(syncSvc, syncLogRepo, cfg.Sync.Interval, syncengine.Hooks{
		OnSyncSuccess: func(runID string, result *syncengine.Result, elapsed time.Duration) {
			metrics.ObserveSyncSuccess(result.ActivitiesSynced, result.DaysSynced, elapsed)
		},
		OnSyncError: func(runID string, err error, elapsed time.Duration) {
			metrics.ObserveSyncError(elapsed)
		},
	}, logger)
	scheduler.Start()
	defer scheduler.Stop()

	handler := transport.NewHandler(scheduler, syncSvc, activityRepo, dailyRepo, syncLogRepo, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
