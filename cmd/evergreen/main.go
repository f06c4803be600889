package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"evergreen/internal/accounts"
	"evergreen/internal/amqp"
	"evergreen/internal/api"
	"evergreen/internal/backend"
	"evergreen/internal/cache"
	"evergreen/internal/config"
	apphttp "evergreen/internal/http"
	"evergreen/internal/kyc"
	"evergreen/internal/log"
	"evergreen/internal/services"
	"evergreen/internal/session"
	"evergreen/internal/transactions"
	"evergreen/internal/viewstate"
	"evergreen/internal/worker"
)

const (
	accountCacheSize = 1000
	accountCacheTTL  = 5 * time.Minute
	maxDrafts        = 500
	draftTTL         = time.Hour
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.LogLevel)
	logger := log.New(logCfg)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize session backend",
			log.FieldError, err,
			"backend", backendCfg.Type)
		os.Exit(1)
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close session backend", log.FieldError, err)
		}
	}()

	// Activity goes through the broker only when the worker can write where
	// this process reads.
	var publisher services.Publisher
	if cfg.AMQPURL != "" && backendCfg.Type.Shared() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, recording activity directly", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}
	activity := services.NewActivityService(store.Backend, publisher, logger)

	sessions := session.NewManager(store.Backend, cfg.SessionTTL,
		session.WithSecureCookie(cfg.CookieSecure),
		session.WithLogger(logger))

	client, err := api.New(cfg.BackendURL, sessions,
		api.WithTimeout(cfg.BackendTimeout),
		api.WithUnauthorizedHandler(sessions.Invalidate),
		api.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to initialize banking API client", log.FieldError, err)
		os.Exit(1)
	}

	accountCache := cache.NewLRUCache[accounts.Result](accountCacheSize, accountCacheTTL)
	drafts := kyc.NewDraftStore(maxDrafts, draftTTL)
	caches := cache.NewManager(logger)
	caches.Register("accounts", accountCache)
	caches.Register("kyc_drafts", drafts.Cache())

	sweeper := worker.NewSweeper(store.Backend, worker.DefaultActivityRetention, logger)
	scheduler := worker.NewScheduler(logger)
	if err := scheduler.Add("session_sweep", cfg.SessionSweepSchedule, func() { sweeper.Sweep(ctx) }); err != nil {
		logger.Error("Failed to schedule session sweep", log.FieldError, err)
		os.Exit(1)
	}
	scheduler.Start()
	caches.StartCleanup(accountCacheTTL)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, apphttp.Deps{
		Backend:      client,
		Sessions:     sessions,
		Accounts:     accounts.NewService(client, accountCache, logger),
		Transactions: transactions.NewService(client, logger),
		Drafts:       drafts,
		Reuploader:   kyc.NewReuploader(client, logger),
		Activity:     activity,
		Tracker:      viewstate.NewTracker(),
		Ready:        store.Backend.Ping,
	}, logger)
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		<-scheduler.Stop().Done()
		caches.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error",
				log.FieldOperation, log.OpShutdown,
				log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting evergreen server",
		"port", cfg.Port,
		"backend", backendCfg.Type,
		"api", cfg.BackendURL,
		"activity_via_amqp", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
