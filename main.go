// Package main is the entry point for the Trackify expense tracker.
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

	"gitlab.com/yelinaung/trackify/internal/config"
	"gitlab.com/yelinaung/trackify/internal/dashboard"
	"gitlab.com/yelinaung/trackify/internal/database"
	"gitlab.com/yelinaung/trackify/internal/gemini"
	"gitlab.com/yelinaung/trackify/internal/identity"
	"gitlab.com/yelinaung/trackify/internal/logger"
	"gitlab.com/yelinaung/trackify/internal/repository"
	"gitlab.com/yelinaung/trackify/internal/store"
	"gitlab.com/yelinaung/trackify/internal/telemetry"
	"gitlab.com/yelinaung/trackify/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	sweepInterval   = time.Minute
	purgeInterval   = time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("trackify %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt(cfg.LogHashSalt)

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.OptionsFrom(cfg))
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}

	docs, ids, closeBackend := openBackend(ctx, cfg)
	defer closeBackend()

	var suggester gemini.Suggester
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, gemini.WithModel(cfg.GeminiModel))
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		suggester = client
		logger.Log.Info().Str("model", client.Model()).Msg("Category suggestions enabled")
	}

	boards := dashboard.NewManager(docs, cfg.DashboardIdleTimeout, dashboard.Options{
		StrictCategories: cfg.StrictCategories,
		Location:         cfg.Location,
		Metrics:          dashboard.DefaultMetrics(),
	})
	go boards.Run(ctx, sweepInterval)

	srv, err := web.New(ids, docs, boards, suggester, web.Options{
		CookieSecure:     cfg.CookieSecure,
		StrictCategories: cfg.StrictCategories,
		Location:         cfg.Location,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create web server")
	}
	httpServer := web.NewHTTPServer(cfg.HTTPAddr, srv.Handler())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	go func() {
		logger.Log.Info().Str("addr", cfg.HTTPAddr).Str("version", version).Msg("Listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	<-ctx.Done()

	// Live event streams only end once their dashboards are closed.
	boards.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
	}
	logger.Log.Info().Msg("Stopped")
}

// openBackend returns the document store and identity service. Without a
// database URL everything lives in memory and is lost on exit.
func openBackend(ctx context.Context, cfg *config.Config) (store.Store, *identity.Service, func()) {
	idOpts := identity.Options{SessionTTL: cfg.SessionTTL}
	if cfg.GoogleEnabled() {
		idOpts.OAuth = identity.GoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL())
		logger.Log.Info().Msg("Google sign-in enabled")
	}

	if cfg.InMemory() {
		logger.Log.Warn().Msg("DATABASE_URL is not set, using in-memory storage")
		ids := identity.NewService(identity.NewMemoryAccounts(), identity.NewMemorySessions(), idOpts)
		return store.NewMemory(), ids, func() {}
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Log.Info().Msg("Database initialized successfully")

	docs := store.NewPostgres(pool)
	go func() {
		if err := docs.Listen(ctx); err != nil {
			logger.Log.Error().Err(err).Msg("Document change listener stopped")
		}
	}()

	ids := identity.NewService(
		repository.NewAccountRepository(pool),
		repository.NewSessionRepository(pool),
		idOpts,
	)
	go purgeSessions(ctx, ids)

	return docs, ids, pool.Close
}

func purgeSessions(ctx context.Context, ids *identity.Service) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ids.PurgeExpired(ctx)
			if err != nil {
				logger.Log.Warn().Err(err).Msg("Failed to purge expired sessions")
				continue
			}
			if n > 0 {
				logger.Log.Info().Int64("count", n).Msg("Purged expired sessions")
			}
		}
	}
}
