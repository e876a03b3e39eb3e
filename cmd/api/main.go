package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/aframp/aframp_backend/internal/config"
	"github.com/aframp/aframp_backend/internal/infra"
	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/logging"
	"github.com/aframp/aframp_backend/internal/routes"
	"github.com/aframp/aframp_backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile, err := cfg.NetworkProfile()
	if err != nil {
		logger.Error("invalid stellar configuration", "error", err)
		os.Exit(1)
	}

	var (
		db    *pgxpool.Pool
		cache *redis.Client
	)
	if !cfg.SkipExternals {
		if cfg.MigrateOnStart {
			if err := infra.Migrate(cfg.DatabaseURL); err != nil {
				logger.Error("run migrations", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}

		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("SKIP_EXTERNALS set: using in-memory trustline operation store and no redis")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := ledger.NewMetrics(registry)
	if err != nil {
		logger.Error("register metrics", "error", err)
		os.Exit(1)
	}

	gateway, err := newGateway(cfg, profile, logger, metrics)
	if err != nil {
		logger.Error("build horizon client", "error", err)
		os.Exit(1)
	}

	monitor := ledger.NewMonitor(gateway, profile.HealthCheckInterval, logger)
	go monitor.Run(ctx)

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Logger:   logger,
		Gateway:  gateway,
		Monitor:  monitor,
		Gatherer: registry,
	}, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	logger.Info("starting server", "addr", cfg.Address(), "network", profile.String())

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
