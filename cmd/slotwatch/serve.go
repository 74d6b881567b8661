package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/user/slot-watcher/internal/adapter/chromedp_session"
	"github.com/user/slot-watcher/internal/adapter/postgres"
	"github.com/user/slot-watcher/internal/adapter/pushover"
	redis_adapter "github.com/user/slot-watcher/internal/adapter/redis"
	"github.com/user/slot-watcher/internal/delivery/http/handler"
	"github.com/user/slot-watcher/internal/delivery/http/router"
	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/probe"
	"github.com/user/slot-watcher/internal/repository"
	"github.com/user/slot-watcher/internal/usecase"
	"github.com/user/slot-watcher/pkg/config"
	"github.com/user/slot-watcher/pkg/logger"
	"github.com/user/slot-watcher/pkg/metrics"
)

const (
	shutdownTimeout = 10 * time.Second
	connectTimeout  = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start polling the configured sources",
	Long: `Start the poll loop and the HTTP server.

The HTTP server answers GET / with 200 for liveness probes and serves
/api/status, /api/health and /metrics. It runs until SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	sources, err := usecase.ClassifySources(cfg.Locators())
	if err != nil {
		log.Error("Refusing to start", "error", err)
		return err
	}
	log.Info("Config loaded", "sources", len(sources), "port", cfg.Port)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.WallClock
	backends := make(map[string]handler.Pinger)

	// --- Alert sinks ---
	var sinks []repository.Notifier
	if cfg.PushoverEnabled() {
		sinks = append(sinks, pushover.NewNotifier(cfg.PushoverEndpoint, cfg.PushoverToken, cfg.PushoverUser, cfg.RequestTimeout()))
	} else {
		log.Warn("PUSHOVER_TOKEN or PUSHOVER_USER missing, push notifications disabled")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		publisher := redis_adapter.NewPublisher(rdb)
		if err := pingWithTimeout(ctx, publisher); err != nil {
			return fmt.Errorf("unable to connect to Redis: %w", err)
		}
		sinks = append(sinks, publisher)
		backends["redis"] = publisher
		log.Info("Redis alert publisher enabled", "channel", redis_adapter.AlertChannel)
	}

	// --- Observation history ---
	var recorders []repository.ObservationRecorder
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("unable to create database pool: %w", err)
		}
		defer pool.Close()

		observations := postgres.NewObservationRepo(pool)
		schemaCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = observations.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("unable to prepare observations table: %w", err)
		}
		recorders = append(recorders, observations)
		backends["postgres"] = observations
		log.Info("PostgreSQL observation history enabled")
	}

	// --- Probes ---
	probes := map[entity.Kind]repository.SourceProbe{
		entity.KindDirect: probe.NewDirectQueryProbe(&http.Client{}, clk, cfg.RequestTimeout()),
	}

	var sessions repository.SessionManager
	if hasKind(sources, entity.KindRendered) {
		manager := chromedp_session.NewSessionManager(chromedp_session.Options{
			ExecPath:  cfg.ChromiumExecutablePath,
			Headless:  cfg.Headless,
			NoSandbox: cfg.NoSandbox,
		}, log)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("unable to start browser: %w", err)
		}
		defer manager.Close()
		sessions = manager

		renderedOpts := probe.DefaultRenderedOptions()
		renderedOpts.BlockRequestFragment = cfg.BlockRequestPattern
		probes[entity.KindRendered] = probe.NewRenderedPageProbe(renderedOpts)
	}

	// --- Use cases ---
	dispatcherCfg := usecase.DefaultDispatcherConfig()
	dispatcherCfg.RetryDelay = cfg.AlertRetry()
	dispatcherCfg.AttemptTimeout = cfg.RequestTimeout()
	dispatcher := usecase.NewDispatcher(sinks, dispatcherCfg, clk, m, log)
	dispatcher.Start()
	defer dispatcher.Stop()

	schedulerCfg := usecase.DefaultSchedulerConfig()
	schedulerCfg.RegularDelay = cfg.RegularDelay()
	schedulerCfg.ErrorDelay = cfg.ErrorDelay()
	schedulerCfg.DegradedInterval = cfg.DegradedDelay()
	schedulerCfg.FailureThreshold = cfg.ErrorThreshold
	schedulerCfg.LogContentOnChange = cfg.LogHTML

	scheduler := usecase.NewScheduler(sources, schedulerCfg, usecase.SchedulerDeps{
		Probes:    probes,
		Sessions:  sessions,
		Alerts:    dispatcher,
		Recorders: recorders,
		Clock:     clk,
		Metrics:   m,
		Logger:    log,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(handler.NewHandler(scheduler, backends, log), m, reg, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		_ = scheduler.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		log.Error("Could not listen on port", "port", cfg.Port, "error", err)
		runErr = err
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", "error", err)
	}

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timed out", "timeout", shutdownTimeout.String())
	}
	log.Info("Shutdown complete")
	return runErr
}

func pingWithTimeout(ctx context.Context, p handler.Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return p.Ping(ctx)
}

func hasKind(sources []entity.Source, kind entity.Kind) bool {
	for _, src := range sources {
		if src.Kind == kind {
			return true
		}
	}
	return false
}

