// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the QuillPress API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"quillpress/internal/ai"
	"quillpress/internal/blog"
	"quillpress/internal/cache"
	"quillpress/internal/config"
	"quillpress/internal/database"
	"quillpress/internal/handlers"
	"quillpress/internal/imaging"
	"quillpress/internal/middleware"
	"quillpress/internal/pipeline"
	"quillpress/internal/router"
	"quillpress/internal/session"
	"quillpress/internal/storage"
	"quillpress/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL and run pending migrations.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions, response cache, pipeline jobs).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark session cookies as Secure.
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	st := store.New(db)
	blogService := blog.NewService(st)
	responseCache := cache.NewResponseCache(valkeyClient, cache.DefaultResponseTTL)

	// Connect to S3-compatible object storage (optional; media endpoints
	// answer 503 without it).
	var storageClient *storage.Client
	if cfg.S3Endpoint != "" && cfg.S3AccessKey != "" {
		storageClient, err = storage.New(
			cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
			cfg.S3Bucket, cfg.S3PublicURL,
		)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		slog.Info("s3 storage connected",
			"endpoint", cfg.S3Endpoint,
			"bucket", cfg.S3Bucket,
		)
		imaging.Startup(0)
		defer imaging.Shutdown()
	} else {
		slog.Warn("s3 storage not configured, media uploads disabled")
	}

	// AI provider registry. Providers without keys are skipped; an OpenAI
	// key additionally enables comment moderation.
	aiRegistry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai": {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		"gemini": {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiBaseURL},
		"claude": {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
	})

	slog.Info("ai providers initialized",
		"active", aiRegistry.ActiveName(),
		"available", aiRegistry.Available(),
	)

	// The drafting pipeline needs an author and category for its drafts.
	// Without them (or without any provider) the pipeline endpoints stay
	// disabled.
	var contentPipeline *pipeline.Pipeline
	if len(aiRegistry.Available()) > 0 {
		contentPipeline = buildPipeline(st, blogService, aiRegistry, valkeyClient, cfg.NewsFeedURL)
	}

	adminHandlers := handlers.NewAdmin(blogService, st, responseCache, logger)
	authHandlers := handlers.NewAuth(st.User, sessionStore, logger)
	publicHandlers := handlers.NewPublic(blogService, st, responseCache, aiRegistry, logger)
	aiHandlers := handlers.NewAdminAI(aiRegistry, contentPipeline, logger)
	mediaHandlers := handlers.NewAdminMedia(storageClient, aiRegistry, logger)

	// Anonymous writes (comments, likes, login) share one per-IP limiter.
	writeLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer writeLimiter.Stop()

	r := router.New(sessionStore, router.Handlers{
		Public:  publicHandlers,
		Auth:    authHandlers,
		Admin:   adminHandlers,
		AdminAI: aiHandlers,
		Media:   mediaHandlers,
	}, writeLimiter)

	// WriteTimeout must accommodate AI endpoints that wait on LLM
	// responses.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// buildPipeline wires the drafting pipeline onto the seeded admin account
// and the news category. Returns nil when either is missing so the
// pipeline endpoints answer 503 instead of producing unowned drafts.
func buildPipeline(st *store.Store, svc *blog.Service, registry *ai.Registry, valkeyClient *redis.Client, feedURL string) *pipeline.Pipeline {
	author, err := st.User.FindByUsername("admin")
	if err != nil || author == nil {
		slog.Warn("pipeline disabled: no admin account", "error", err)
		return nil
	}
	category, err := st.Category.FindBySlug("news")
	if err != nil || category == nil {
		slog.Warn("pipeline disabled: no news category", "error", err)
		return nil
	}

	var fetcher pipeline.Fetcher
	if feedURL != "" {
		fetcher = pipeline.NewHTTPFetcher(feedURL)
	}

	jobs := pipeline.NewValkeyJobStore(valkeyClient, pipeline.DefaultJobTTL)
	slog.Info("content pipeline enabled",
		"author", author.Username,
		"category", category.Slug,
		"feed", feedURL != "",
	)
	return pipeline.New(registry, fetcher, svc, jobs, author.ID, category.ID)
}
