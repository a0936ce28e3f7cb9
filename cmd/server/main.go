package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/autoblog-publisher/internal/api"
	"github.com/autoblog-publisher/internal/config"
	"github.com/autoblog-publisher/internal/database"
	"github.com/autoblog-publisher/internal/generation"
	"github.com/autoblog-publisher/internal/metrics"
	"github.com/autoblog-publisher/internal/repository"
	"github.com/autoblog-publisher/internal/retry"
	"github.com/autoblog-publisher/internal/service"
	"github.com/autoblog-publisher/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting autoBlog publisher...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = log.Level(logger.ParseLevel(cfg.Log.Level))

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize the content store
	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open content store")
	}
	defer closeStore()
	repos := repository.New(repository.WithMetrics(store, m))

	// Initialize the generation backend
	gen, err := generation.New(context.Background(), generationSettings(cfg), m, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create generation backend")
	}

	// Initialize services
	services, err := service.NewServices(repos, gen, m, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create services")
	}

	// Start the scheduled trigger
	if services.Scheduler != nil {
		services.Scheduler.Start()
		log.Info().
			Str("expression", cfg.Cron.Expression).
			Str("timezone", cfg.Cron.Timezone).
			Time("next_run", services.Scheduler.NextRun()).
			Msg("Scheduler started")
	} else {
		log.Info().Msg("Scheduler disabled")
	}

	// Initialize router
	router := api.NewRouter(services, cfg, registry, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// No new ticks, then let runs that reached persisting finish
	if services.Scheduler != nil {
		if err := services.Scheduler.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduler did not stop in time")
		}
	}
	if err := services.Publish.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Runs still in flight at shutdown")
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// openStore builds the configured content store and its cleanup
func openStore(cfg *config.Config, log zerolog.Logger) (repository.PostStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		policy := retry.DefaultPolicy()
		policy.MaxAttempts = cfg.Retry.MaxAttempts
		policy.MaxDelay = cfg.Retry.MaxDelay
		db, err := database.New(context.Background(), &cfg.Database, policy, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewPostRepo(db, cfg.Store.CallTimeout), func() { db.Close() }, nil
	default:
		store, err := repository.NewGitHubRepo(repository.GitHubConfig{
			Token:          cfg.Store.GitHubToken,
			Owner:          cfg.Store.Owner,
			Repo:           cfg.Store.Repo,
			Branch:         cfg.Store.Branch,
			CommitterName:  cfg.Store.CommitterName,
			CommitterEmail: cfg.Store.CommitterEmail,
			CallTimeout:    cfg.Store.CallTimeout,
			CacheSize:      cfg.Store.CacheSize,
		}, nil, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func generationSettings(cfg *config.Config) generation.Settings {
	g := cfg.Generation
	s := generation.Settings{
		Provider:      g.Provider,
		ImageModel:    g.ImageModel,
		Temperature:   g.Temperature,
		MaxTokens:     g.MaxTokens,
		TopP:          g.TopP,
		RatePerMinute: g.RatePerMinute,
		CallTimeout:   g.CallTimeout,
	}
	switch g.Provider {
	case config.ProviderGemini:
		s.APIKey = g.GeminiKey
		s.Model = g.GeminiModel
	default:
		s.APIKey = g.OpenAIKey
		s.BaseURL = g.OpenAIBaseURL
		s.Model = g.OpenAIModel
	}
	return s
}
