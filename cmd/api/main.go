package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/reelsmith/internal/api"
	"github.com/bobarin/reelsmith/internal/app"
	"github.com/bobarin/reelsmith/internal/config"
	"github.com/bobarin/reelsmith/internal/db"
	"github.com/bobarin/reelsmith/internal/logging"
	"github.com/bobarin/reelsmith/internal/queue"
	"github.com/bobarin/reelsmith/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Getenv("APP_ENV")).Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.AppEnv)
	logger.Info().Msg("starting render API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderer, err := app.NewRenderer(ctx, cfg, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build renderer")
	}

	if !cfg.StorageEnabled() {
		logger.Warn().Str("output_dir", cfg.OutputDir).Msg("no Supabase credentials, renders are kept locally")
	}

	var (
		jobs       api.JobStore
		enq        api.Enqueuer
		workerDone = make(chan struct{})
	)

	if cfg.AsyncEnabled() {
		database, err := db.New(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
		logger.Info().Msg("connected to database")

		q, err := queue.New(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to queue")
		}
		defer q.Close()
		logger.Info().Msg("connected to Redis queue")

		jobs, enq = database, q

		if cfg.WorkerEnabled {
			w := worker.New(database, q, renderer, cfg.MaxJobAttempts, logger)
			go func() {
				defer close(workerDone)
				w.Start(ctx, cfg.MaxConcurrentJobs)
			}()
		} else {
			close(workerDone)
		}
	} else {
		close(workerDone)
		logger.Warn().Msg("DATABASE_URL not set, async render endpoints disabled")
	}

	handler := api.NewHandler(renderer, jobs, enq, cfg.MaxSyncRenders, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	}, logger)

	if cfg.BackendAPIKey != "" {
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Warn().Msg("no BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.APIPort).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("worker did not stop in time")
	}

	logger.Info().Msg("server exited")
}
