// Package app wires configuration, the upstream client, storage, services,
// and the HTTP surface into a runnable process.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rwrpulse/rwrpulse/external/rwrlist"
	"github.com/rwrpulse/rwrpulse/internal/config"
	"github.com/rwrpulse/rwrpulse/internal/interfaces/httpapi"
	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
	"github.com/rwrpulse/rwrpulse/internal/platform/resilience"
	"github.com/rwrpulse/rwrpulse/internal/scheduler"
	"github.com/rwrpulse/rwrpulse/internal/storage/offline"
	"github.com/rwrpulse/rwrpulse/internal/usecase"
)

// App bundles the process components the entrypoint has to start and stop.
type App struct {
	Server    *http.Server
	Scheduler *scheduler.CronScheduler
	Store     *offline.Store
}

func New(cfg config.Config, slogger *slog.Logger, logger *logging.Logger) (*App, error) {
	if slogger == nil {
		slogger = slog.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}

	store := offline.NewStore(cfg.CachePath, logger)
	snapshots := offline.NewServerSnapshots(store)

	client := rwrlist.NewClient(rwrlist.ClientConfig{
		BaseURL:     cfg.ListBaseURL,
		Timeout:     cfg.ListTimeout,
		ListTimeout: cfg.ListAggregationTimeout,
		Logger:      logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.ListCircuitEnabled,
			FailureThreshold: cfg.ListCircuitFailureCount,
			OpenTimeout:      cfg.ListCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ListCircuitHalfOpenMaxReq,
		},
	})

	mapSvc := usecase.NewMapService(client, store, logger, usecase.MapServiceConfig{
		FetchTimeout: cfg.ListTimeout,
		CacheMaxAge:  cfg.MapCacheMaxAge,
	})
	serverSvc := usecase.NewServerService(client, snapshots, mapSvc, logger, usecase.ServerServiceConfig{
		ListTimeout:    cfg.ListAggregationTimeout,
		SnapshotMaxAge: cfg.SnapshotMaxAge,
	})
	playerSvc := usecase.NewPlayerService(client, store, logger, usecase.PlayerServiceConfig{
		FetchTimeout: cfg.ListTimeout,
		CacheMaxAge:  cfg.PlayerCacheMaxAge,
	})
	refreshSvc := usecase.NewRefreshService(serverSvc, playerSvc, mapSvc, logger, usecase.RefreshServiceConfig{
		PlayerDatabases: cfg.PlayerDatabases,
		PlayerWindow:    cfg.PlayerRefreshWindow,
		MaxWorkers:      cfg.RefreshMaxWorkers,
	})

	handler := httpapi.NewHandler(serverSvc, playerSvc, mapSvc, refreshSvc, slogger)
	router := httpapi.NewRouter(handler, slogger, cfg.CORSAllowedOrigins, cfg.AdminToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	var cronScheduler *scheduler.CronScheduler
	if cfg.RefreshEnabled {
		cronScheduler = scheduler.NewCronScheduler(refreshSvc, logger, scheduler.Config{
			RefreshSpec: cfg.RefreshCronSpec,
			JobTimeout:  cfg.RefreshJobTimeout,
		})
	}

	return &App{
		Server:    server,
		Scheduler: cronScheduler,
		Store:     store,
	}, nil
}
