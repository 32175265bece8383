package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contentcoach/coachbot/internal/agent"
	"github.com/contentcoach/coachbot/internal/ai"
	"github.com/contentcoach/coachbot/internal/course"
	"github.com/contentcoach/coachbot/internal/httpapi"
	"github.com/contentcoach/coachbot/internal/platform/cache"
	"github.com/contentcoach/coachbot/internal/platform/config"
	"github.com/contentcoach/coachbot/internal/platform/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, checks, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to build store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var aiOpts []ai.OpenAIOption
	if cfg.AI.OpenAI.BaseURL != "" {
		aiOpts = append(aiOpts, ai.WithBaseURL(cfg.AI.OpenAI.BaseURL))
	}
	assistant := ai.NewOpenAIAssistant(cfg.AI.OpenAI.APIKey, aiOpts...)

	engine := agent.NewEngine(agent.EngineConfig{
		Assistant: assistant,
		Store:     store,
	})

	api := httpapi.New(httpapi.Config{
		Engine:      engine,
		Store:       store,
		ReadyChecks: checks,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     api.Routes(),
		ReadTimeout: 10 * time.Second,
		// Chat turns stream for as long as the model talks; no write timeout.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// buildStore selects the durable store: PostgreSQL when a database URL is
// configured, otherwise an in-memory store seeded from YAML bot definitions.
func buildStore(ctx context.Context, cfg *config.Config) (agent.Store, map[string]httpapi.HealthCheck, func(), error) {
	checks := make(map[string]httpapi.HealthCheck)
	cleanup := func() {}

	if !cfg.UsesDatabase() {
		store, err := seedMemoryStore(cfg.BotsPath)
		if err != nil {
			return nil, nil, cleanup, err
		}
		slog.Info("using in-memory store", "bots_path", cfg.BotsPath)
		return store, checks, cleanup, nil
	}

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return nil, nil, cleanup, fmt.Errorf("connecting to database: %w", err)
	}
	checks["database"] = db.HealthCheck

	var storeOpts []agent.PostgresOption
	closers := []func(){db.Close}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			db.Close()
			return nil, nil, cleanup, fmt.Errorf("connecting to cache: %w", err)
		}
		storeOpts = append(storeOpts, agent.WithBotCache(c))
		checks["cache"] = c.HealthCheck
		closers = append(closers, func() { c.Close() })
	}

	store, err := agent.NewPostgresStore(db.Pool, storeOpts...)
	if err != nil {
		for _, closeFn := range closers {
			closeFn()
		}
		return nil, nil, cleanup, err
	}

	cleanup = func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
	return store, checks, cleanup, nil
}

// seedMemoryStore loads YAML bot definitions into a fresh in-memory store.
func seedMemoryStore(botsPath string) (*agent.MemoryStore, error) {
	loader, err := course.NewLoader(botsPath)
	if err != nil {
		return nil, err
	}

	store := agent.NewMemoryStore()
	for _, def := range loader.All() {
		store.SeedBot(agent.Bot{
			ID:           def.ID,
			Name:         def.Name,
			AssistantID:  def.AssistantID,
			SystemPrompt: def.SystemPrompt,
			AccessHash:   def.AccessCodeHash,
			CourseMap:    def.CourseMap(),
		})
	}
	return store, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
