package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/campusdesk/internal/api/http"
	"github.com/spec-kit/campusdesk/internal/app"
	"github.com/spec-kit/campusdesk/internal/config"
	"github.com/spec-kit/campusdesk/internal/observability"
	"github.com/spec-kit/campusdesk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, logger, cfg.App.Name, cfg.App.Version, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	container, err := app.Open(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to wire application", zap.Error(err))
	}
	defer container.Close()

	worker.StartNotificationWorker(container.Notifications, logger)

	sweeper := worker.NewRateLimitSweeper(container.Limiter, app.MaxRateLimitWindow(cfg.RateLimit),
		cfg.RateLimit.SweepInterval, logger, container.Metrics)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("rate limit sweeper stopped", zap.Error(err))
		}
	}()

	server := httptransport.NewServer(container)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer flushCancel()
	_ = shutdownTracing(flushCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
