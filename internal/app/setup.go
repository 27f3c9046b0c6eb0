package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/parley/db"
	"github.com/koopa0/parley/internal/adapter/imagegen"
	"github.com/koopa0/parley/internal/adapter/model"
	"github.com/koopa0/parley/internal/adapter/weather"
	"github.com/koopa0/parley/internal/adapter/websearch"
	"github.com/koopa0/parley/internal/api"
	"github.com/koopa0/parley/internal/auth"
	"github.com/koopa0/parley/internal/chat"
	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/conversation"
	"github.com/koopa0/parley/internal/knowledge"
	"github.com/koopa0/parley/internal/log"
	"github.com/koopa0/parley/internal/observability"
	"github.com/koopa0/parley/internal/router"
	"github.com/koopa0/parley/internal/settings"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup. Call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	repo, err := conversation.NewPostgresRepository(pool, logger)
	if err != nil {
		return nil, err
	}
	a.Store = conversation.NewStore(repo, logger)

	a.Settings, err = settings.NewPostgresStore(pool, settings.Snapshot{
		WebSearchEnabled: cfg.WebSearchEnabled,
		Freemium: settings.Freemium{
			Enabled:      cfg.Freemium.Enabled,
			MessageLimit: cfg.Freemium.MessageLimit,
		},
	}, logger)
	if err != nil {
		return nil, err
	}

	completer, err := model.NewClient(ctx, model.Config{
		APIKey:          cfg.GeminiAPIKey,
		ModelName:       cfg.ModelName,
		VisionModelName: cfg.VisionModelName,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating completion adapter: %w", err)
	}

	rt := router.New(knowledge.Default(logger), logger)

	scraper := websearch.NewScraper(cfg.WebScraper, logger)
	searcher := websearch.NewClient(cfg.SearXNG, scraper, logger)
	wx := weather.NewClient(cfg.Weather, logger)
	ig := imagegen.NewClient(cfg.ImageGen, logger)

	a.Controller = chat.New(a.Store, a.Settings, rt, completer, searcher, wx, ig, *cfg, logger)
	a.Auth = auth.NewHMACProvider(cfg.AuthSecret)

	a.Server, err = api.NewServer(api.ServerConfig{
		Logger:     logger,
		Controller: a.Controller,
		Store:      a.Store,
		Settings:   a.Settings,
		Auth:       a.Auth,
		Pool:       pool,
		TrustProxy: cfg.TrustProxy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating api server: %w", err)
	}

	return a, nil
}

// provideOtelShutdown sets up the optional trace pipeline. Returns a
// cleanup that flushes pending spans with its own timeout.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	shutdown, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Warn("setting up tracing", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}
