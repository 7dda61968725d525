// @title           AI Image Editor API
// @version         1.0.0
// @description     Backend API for prompt-driven image editing. Handles image uploads, generation through a hosted model, project history, Stripe payments and storage cleanup.

// @BasePath  /api

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the Supabase access token.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"ai-image-editor-backend/internal/config"
	"ai-image-editor-backend/internal/database"
	"ai-image-editor-backend/internal/gemini"
	"ai-image-editor-backend/internal/generation"
	"ai-image-editor-backend/internal/handlers"
	"ai-image-editor-backend/internal/logging"
	"ai-image-editor-backend/internal/middleware"
	"ai-image-editor-backend/internal/payments"
	"ai-image-editor-backend/internal/replicate"
	"ai-image-editor-backend/internal/services"
	"ai-image-editor-backend/internal/storage"
	"ai-image-editor-backend/internal/supabase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database client: %w", err)
	}
	defer dbClient.Close()

	if err := database.NewMigrator(dbClient.DB(), logger).Run(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("migrations completed")

	backend, err := newStorageBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}

	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}

	verifier, err := newTokenVerifier(cfg)
	if err != nil {
		return err
	}

	access := storage.NewAccessResolver(backend, storage.NewVisibilityCache(), cfg.SignedURLExpiry, logger)

	pipeline := generation.NewPipeline(
		generation.Options{
			InputBucket:  cfg.InputBucket,
			InputFolder:  cfg.InputFolder,
			OutputBucket: cfg.OutputBucket,
			OutputFolder: cfg.OutputFolder,
		},
		generation.Deps{
			Storage: backend,
			Keyer:   storage.NewKeyer(),
			Access:  access,
			Builder: &generation.RequestBuilder{
				PromptParam:  cfg.ProviderPromptParam,
				ImageParam:   cfg.ProviderImageParam,
				ImageAsArray: cfg.ProviderImageAsArray,
				Extra:        generation.ParseExtraInputs(cfg.ProviderExtraInputsRaw, logger),
			},
			Provider:   provider,
			Downloader: generation.NewDownloader(nil, 0),
			Projects:   dbClient,
			Metrics:    generation.MustNewMetrics(prometheus.DefaultRegisterer),
			Logger:     logger,
		},
	)

	gateway := payments.NewGateway(payments.GatewayConfig{
		SecretKey:  cfg.StripeSecretKey,
		Currency:   cfg.StripeCurrency,
		PriceCents: cfg.GenerationPriceCents,
		PublicURL:  cfg.PublicURL,
	}, logger)

	service := services.NewProjectService(
		services.Config{
			InputBucket:   cfg.InputBucket,
			OutputBucket:  cfg.OutputBucket,
			PriceCents:    cfg.GenerationPriceCents,
			WebhookSecret: cfg.StripeWebhookSecret,
		},
		dbClient, pipeline, backend, gateway, logger,
	)

	router := handlers.NewRouter(handlers.RouterConfig{
		Service:        service,
		Verifier:       verifier,
		Database:       dbClient,
		Gatherer:       prometheus.DefaultGatherer,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Burst:             cfg.RateLimitBurst,
		},
		Logger: logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"storage", cfg.StorageBackend,
			"provider", provider.Name())
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func newStorageBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		s3, err := storage.NewS3Backend(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			UseSSL:          cfg.S3UseSSL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		if err := s3.EnsureBuckets(ctx, cfg.S3Region, cfg.InputBucket, cfg.OutputBucket); err != nil {
			return nil, fmt.Errorf("failed to prepare buckets: %w", err)
		}
		return s3, nil
	default:
		return supabase.NewStorageBackend(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey), nil
	}
}

func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (generation.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		return client, nil
	default:
		client, err := replicate.NewClient(cfg.ReplicateAPIToken, cfg.ReplicateModel, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize replicate client: %w", err)
		}
		return client, nil
	}
}

// newTokenVerifier prefers local JWT verification and falls back to asking
// Supabase Auth when no secret is configured.
func newTokenVerifier(cfg *config.Config) (middleware.TokenVerifier, error) {
	if cfg.SupabaseJWTSecret != "" {
		return middleware.NewJWTVerifier(cfg.SupabaseJWTSecret), nil
	}
	client, err := supabase.NewAuthClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize supabase auth: %w", err)
	}
	return client, nil
}
