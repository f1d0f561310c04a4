package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kairoshq/kairos/internal"
	"github.com/kairoshq/kairos/internal/ai"
	"github.com/kairoshq/kairos/internal/ai/anthropic"
	"github.com/kairoshq/kairos/internal/ai/google"
	"github.com/kairoshq/kairos/internal/ai/groq"
	"github.com/kairoshq/kairos/internal/ai/memory"
	"github.com/kairoshq/kairos/internal/ai/mock"
	"github.com/kairoshq/kairos/internal/handler"
	"github.com/kairoshq/kairos/internal/jobs"
	"github.com/kairoshq/kairos/internal/metrics"
	"github.com/kairoshq/kairos/internal/middleware"
	"github.com/kairoshq/kairos/internal/quota"
	"github.com/kairoshq/kairos/internal/repository"
	"github.com/kairoshq/kairos/internal/service"
	"github.com/kairoshq/kairos/internal/storage"
	"github.com/kairoshq/kairos/internal/worker"

	"github.com/google/uuid"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// ==========================================================================
	// AI providers
	// ==========================================================================

	provider, err := buildProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("provider initialization failed: %w", err)
	}

	// ==========================================================================
	// Storage
	// ==========================================================================

	store, err := buildStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// ==========================================================================
	// Quota guard
	// ==========================================================================

	catalog := quota.NewCatalog(cfg.QuotaOverrides)
	guard := quota.NewGuard(repo, catalog, logger)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var w *worker.Worker
	var scheduleTitle service.TitleScheduler
	if cfg.WorkerEnabled {
		w, err = worker.New(db, repo, worker.Config{
			Concurrency:       cfg.WorkerConcurrency,
			PollInterval:      cfg.WorkerPollInterval,
			JobTimeout:        cfg.WorkerJobTimeout,
			ShutdownTimeout:   30 * time.Second,
			StaleJobThreshold: 10 * time.Minute,
		}, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}

		w.Register(jobs.NewGenerateTitleHandler(repo, provider, cfg.TitleModel, logger))
		w.Register(jobs.NewCleanupSessionsHandler(repo, logger))

		scheduleTitle = func(ctx context.Context, conversationID uuid.UUID) error {
			_, err := worker.EnqueueGenerateTitle(ctx, repo, conversationID)
			return err
		}
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	userService := service.NewUserService(repo, logger)
	tenantService := service.NewTenantService(repo, logger)
	agentService := service.NewAgentService(repo, guard, logger)
	projectService := service.NewProjectService(repo, guard, logger)
	swipeService := service.NewSwipeService(repo, guard, logger)
	chatService := service.NewChatService(repo, guard, provider, scheduleTitle, service.ChatConfig{
		DefaultModel:       cfg.DefaultModel,
		DefaultMaxTokens:   cfg.DefaultMaxTokens,
		DefaultTemperature: cfg.DefaultTemperature,
	}, logger)
	visionService := service.NewVisionService(guard, provider, service.VisionConfig{
		Model: cfg.VisionModel,
	}, logger)
	attachmentService := service.NewAttachmentService(store, service.NewImagingProcessor(), logger)

	// ==========================================================================
	// Middleware
	// ==========================================================================

	authMw := middleware.NewAuthMiddleware(userService, tenantService, logger)
	authRateLimiter := middleware.NewAuthRateLimiter(logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(cfg.Env != "development")
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser, authMw.WithTenant)
	requireTenant := middleware.Stack(authMw.WithUser, authMw.RequireUser, authMw.WithTenant, authMw.RequireTenant)

	// ==========================================================================
	// Routes
	// ==========================================================================

	mux := http.NewServeMux()

	handler.NewHealthHandler(db).RegisterRoutes(mux)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Locally stored attachments are served straight from disk.
	if cfg.StorageProvider == storage.ProviderLocal {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	handler.NewAuthHandler(userService, authRateLimiter, logger).RegisterRoutes(mux, requireUser)
	handler.NewTenantHandler(tenantService, guard, logger).RegisterRoutes(mux, requireUser, requireTenant)
	handler.NewAgentHandler(agentService, logger).RegisterRoutes(mux, requireTenant)
	handler.NewProjectHandler(projectService, logger).RegisterRoutes(mux, requireTenant)
	handler.NewSwipeHandler(swipeService, logger).RegisterRoutes(mux, requireTenant)
	handler.NewChatHandler(chatService, logger).RegisterRoutes(mux, requireUser, requireTenant)
	handler.NewVisionHandler(visionService, logger).RegisterRoutes(mux, requireTenant)
	handler.NewAttachmentHandler(attachmentService, logger).RegisterRoutes(mux, requireTenant)

	// Outermost first: security headers, request logging, then metrics.
	root := middleware.Stack(securityMw.Handler, loggingMw.Handler, metrics.Middleware)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	if w != nil {
		w.Start(ctx)
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if w != nil {
		w.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// buildProvider assembles the model router. Families without credentials are
// left unconfigured; in mock mode every request goes to the mock provider.
func buildProvider(cfg *internal.Config, logger *slog.Logger) (ai.Provider, error) {
	if cfg.AIProvider == "mock" {
		logger.Warn("Using mock AI provider, responses are canned")
		m := mock.New(logger)
		return ai.NewRouter(m, m, m), nil
	}

	providerConfig := ai.Config{
		MaxRetries:     cfg.AIMaxRetries,
		RetryBaseDelay: cfg.AIRetryBaseDelay,
		RequestTimeout: cfg.AIRequestTimeout,
	}

	mem, err := memory.NewStore(cfg.MemoryRoot)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}

	anthropicProvider, err := anthropic.New(anthropic.Config{
		APIKey:         cfg.AnthropicAPIKey,
		ProviderConfig: providerConfig,
	}, mem, logger)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	// Google and Groq are optional; models routed to a missing family fail
	// with a clear error instead of silently falling back.
	var googleProvider, groqProvider ai.Provider
	if cfg.GoogleAPIKey != "" {
		p, err := google.New(google.Config{
			APIKey:         cfg.GoogleAPIKey,
			ProviderConfig: providerConfig,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("google: %w", err)
		}
		googleProvider = p
	}
	if cfg.GroqAPIKey != "" {
		p, err := groq.New(groq.Config{
			APIKey:         cfg.GroqAPIKey,
			ProviderConfig: providerConfig,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("groq: %w", err)
		}
		groqProvider = p
	}

	return ai.NewRouter(anthropicProvider, googleProvider, groqProvider), nil
}

// buildStorage selects the attachment storage backend.
func buildStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	case storage.ProviderLocal:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
