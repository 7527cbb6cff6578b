package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rwrpulse/rwrpulse/internal/app"
	"github.com/rwrpulse/rwrpulse/internal/config"
	"github.com/rwrpulse/rwrpulse/internal/observability"
	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logging.SlogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(slogger)

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	uptraceShutdown, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		slogger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	pyroscopeStop, err := observability.InitPyroscope(cfg, slogger)
	if err != nil {
		slogger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, slogger, logger)
	if err != nil {
		slogger.Error("build app", "error", err)
		os.Exit(1)
	}

	if application.Scheduler != nil {
		if err := application.Scheduler.Start(); err != nil {
			slogger.Error("start scheduler", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		slogger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := application.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		slogger.Error("graceful shutdown failed", "error", err)
	}
	if application.Scheduler != nil {
		application.Scheduler.Stop()
	}
	if err := application.Store.Close(); err != nil {
		slogger.Error("close offline cache", "error", err)
	}
	if err := pyroscopeStop(); err != nil {
		slogger.Error("stop pyroscope", "error", err)
	}
	if err := uptraceShutdown(shutdownCtx); err != nil {
		slogger.Error("shutdown uptrace", "error", err)
	}

	slogger.Info("http server stopped")
}
