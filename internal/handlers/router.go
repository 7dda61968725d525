package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ai-image-editor-backend/internal/middleware"
	"ai-image-editor-backend/internal/services"
)

type RouterConfig struct {
	Service        *services.ProjectService
	Verifier       middleware.TokenVerifier
	Database       Pinger
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	MaxUploadBytes int64
	RateLimit      middleware.RateLimitConfig
	Logger         *slog.Logger
}

// NewRouter mounts every route. Authenticated routes live under /api; the
// webhook is authenticated by its signature instead.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.GET("/health", HealthHandler(cfg.Database))
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	generateHandler := NewGenerateHandler(cfg.Service, cfg.MaxUploadBytes, logger)
	projectsHandler := NewProjectsHandler(cfg.Service, logger)
	checkoutHandler := NewCheckoutHandler(cfg.Service, logger)
	webhookHandler := NewWebhookHandler(cfg.Service, logger)

	api := router.Group("/api")

	// Webhook (no auth, uses the Stripe signature)
	api.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.Verifier, logger))

	limited := middleware.NewRateLimiter(cfg.RateLimit).Middleware()

	authed.POST("/generate", limited, generateHandler.Generate)
	authed.POST("/upload-and-create-project", limited, generateHandler.UploadAndCreateProject)
	authed.POST("/create-checkout-session", checkoutHandler.CreateCheckoutSession)

	authed.GET("/projects", projectsHandler.ListProjects)
	authed.GET("/projects/:id", projectsHandler.GetProject)
	authed.POST("/projects/:id/generate", limited, projectsHandler.GenerateProject)
	authed.DELETE("/projects/:id", projectsHandler.DeleteProject)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}
