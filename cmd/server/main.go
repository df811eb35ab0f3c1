package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"studysync/internal/config"
	"studysync/internal/db"
	"studysync/internal/epoch"
	"studysync/internal/jobs"
	"studysync/internal/logger"
	"studysync/internal/metrics"
	"studysync/internal/middleware"
	"studysync/internal/normalize"
	"studysync/internal/notion"
	"studysync/internal/reconcile"
	"studysync/internal/server"
	"studysync/internal/source"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger.Install(logger.Config{Environment: cfg.Env, Level: cfg.LogLevel})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	clock := epoch.SystemClock{}

	// Store
	store := notion.NewClient(notion.Options{
		BaseURL:    cfg.NotionBaseURL,
		APIKey:     cfg.NotionAPIKey,
		DatabaseID: cfg.NotionDatabaseID,
		APIVersion: cfg.NotionVersion,
		Schema: notion.Schema{
			Name:     yamlCfg.Schema.Name,
			Key:      yamlCfg.Schema.Key,
			Level:    yamlCfg.Schema.Level,
			Duration: yamlCfg.Schema.Duration,
			Seconds:  yamlCfg.Schema.Seconds,
			Week:     yamlCfg.Schema.Week,
			Status:   yamlCfg.Schema.Status,
			Teacher:  yamlCfg.Schema.Teacher,
		},
	})

	// Source
	sourceClient := source.NewClient(source.Options{
		BaseURL: cfg.FlexgeAPIBase,
		APIKey:  cfg.FlexgeAPIKey,
		Limiter: rate.NewLimiter(rate.Limit(cfg.FlexgeRPS), max(1, int(cfg.FlexgeRPS))),
	})
	fetcher := source.NewFetcher(sourceClient, source.FetcherOptions{
		Clock:    clock,
		Leveler:  normalize.NewLeveler(yamlCfg.LevelAliases),
		MaxPages: cfg.SourceMaxPages,
	})

	// Optional run ledger
	var database *db.DB
	var runCounter metrics.RunCounter
	var recorder jobs.RunRecorder
	if cfg.IsLedgerEnabled() {
		database, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		slog.Info("run ledger enabled, migrations completed")
		runCounter = database
		recorder = database
	} else {
		slog.Info("run ledger disabled; set DATABASE_URL to enable")
	}

	// Dedup cache and metrics
	cache := reconcile.NewCache()
	m := metrics.Init(cache, runCounter)

	reconciler := reconcile.New(fetcher, store, cache, reconcile.Options{
		Policy:      reconcile.Policy(cfg.SyncPolicy),
		Concurrency: cfg.SyncConcurrency,
		Status:      yamlCfg.Defaults.Status,
		Teacher:     yamlCfg.Defaults.Teacher,
		Observe:     m.ObserveOutcome,
	})
	resetter := reconcile.NewResetter(store, cache, slog.Default())

	scheduler, err := jobs.NewScheduler(reconciler, resetter, jobs.Options{
		Interval:      cfg.SyncInterval,
		ResetSchedule: cfg.ResetSchedule,
		Clock:         clock,
		Recorder:      recorder,
		Observer:      m,
	})
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Optional OIDC protection for POST /sync
	var auth *middleware.BearerAuth
	if cfg.IsOIDCEnabled() {
		auth, err = middleware.NewBearerAuth(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			log.Fatalf("Failed to initialize OIDC: %v", err)
		}
	}

	var warmed atomic.Bool
	srv := server.New(cfg)
	srv.RegisterRoutes(server.Deps{
		Scheduler: scheduler,
		Warmed:    warmed.Load,
		Ledger:    database,
		Metrics:   m,
		Auth:      auth,
		Clock:     clock,
	})

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("server error", "error", err)
		}
	}()

	// The store must be readable before any cycle runs; /readyz reports 503
	// until then.
	warmCtx, warmCancel := context.WithTimeout(ctx, 2*time.Minute)
	n, err := reconciler.Warm(warmCtx)
	warmCancel()
	if err != nil {
		log.Fatalf("Failed to warm duplicate cache: %v", err)
	}
	warmed.Store(true)
	slog.Info("duplicate cache ready", "signatures", n)

	go scheduler.Start(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	cancel()
	scheduler.Stop()
	slog.Info("server exited")
}
