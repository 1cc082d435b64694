package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/magickw/ShopSmartly-sub000/internal/assistant"
	"github.com/magickw/ShopSmartly-sub000/internal/auth"
	"github.com/magickw/ShopSmartly-sub000/internal/cache"
	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/handlers"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/lookup"
	"github.com/magickw/ShopSmartly-sub000/internal/metrics"
	"github.com/magickw/ShopSmartly-sub000/internal/middleware"
	"github.com/magickw/ShopSmartly-sub000/internal/pricing"
	"github.com/magickw/ShopSmartly-sub000/internal/storage"
	"github.com/magickw/ShopSmartly-sub000/internal/subscription"
	"github.com/magickw/ShopSmartly-sub000/internal/telemetry"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		// .env is optional, system environment is enough
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Close()

	logger.Infof("ShopSmartly backend starting")

	// Initialize database
	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("failed to initialize database", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("failed to run migrations", err)
	}

	// Redis is optional: lookups and scans still work without the cache,
	// scan limits are simply not enforced
	redisClient, err := cache.NewRedisClient(
		os.Getenv("REDIS_HOST"),
		os.Getenv("REDIS_PORT"),
		os.Getenv("REDIS_PASSWORD"),
	)
	if err != nil {
		logger.Warnf("redis unavailable, continuing without cache: %v", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Tracing (opt-in via OTEL_ENABLED)
	samplingRate := 1.0
	if v := os.Getenv("OTEL_SAMPLING_RATE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			samplingRate = parsed
		}
	}
	tracerProvider, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  "shopsmartly-backend",
		Environment:  os.Getenv("ENVIRONMENT"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Enabled:      os.Getenv("OTEL_ENABLED") == "true",
		SamplingRate: samplingRate,
	})
	if err != nil {
		logger.Warnf("tracing disabled: %v", err)
	} else if tracerProvider != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tracerProvider.Shutdown(ctx)
		}()
	}

	metrics.Initialize()

	// Auth service
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logger.FatalWithFields("JWT_SECRET environment variable is required", nil)
	}
	authService := auth.NewService(
		jwtSecret,
		redisClient,
		os.Getenv("GOOGLE_CLIENT_ID"),
		os.Getenv("GOOGLE_CLIENT_SECRET"),
		os.Getenv("APPLE_CLIENT_ID"),
		os.Getenv("APPLE_CLIENT_SECRET"),
	)

	// Product lookup sources, in merge priority order
	lookupSources := []lookup.Source{
		lookup.NewOpenFoodFactsClient(os.Getenv("OPENFOODFACTS_BASE_URL")),
	}
	if key := os.Getenv("UPCITEMDB_API_KEY"); key != "" || os.Getenv("UPCITEMDB_TRIAL") == "true" {
		lookupSources = append(lookupSources, lookup.NewUPCItemDBClient(os.Getenv("UPCITEMDB_BASE_URL"), key))
	}
	if token := os.Getenv("BARCODESPIDER_TOKEN"); token != "" {
		lookupSources = append(lookupSources, lookup.NewBarcodeSpiderClient(os.Getenv("BARCODESPIDER_BASE_URL"), token))
	}
	lookupAgg := lookup.NewAggregator(lookupSources, redisClient)

	// Price sources
	priceSources := []pricing.Source{
		pricing.NewUPCItemDBOffersClient(os.Getenv("UPCITEMDB_BASE_URL"), os.Getenv("UPCITEMDB_API_KEY")),
	}
	if key := os.Getenv("SEARCHAPI_KEY"); key != "" {
		priceSources = append(priceSources, pricing.NewSearchAPIClient(os.Getenv("SEARCHAPI_BASE_URL"), key))
	}
	pricingAgg := pricing.NewAggregator(priceSources, redisClient)

	subscriptions := subscription.NewService(redisClient)

	h := handlers.NewHandlers(lookupAgg, pricingAgg, subscriptions)
	h.SetAssistant(assistant.NewService(database.DB))
	authHandlers := handlers.NewAuthHandlers(authService)

	// Product image mirroring to S3 is optional
	if bucket := os.Getenv("AWS_BUCKET"); bucket != "" {
		mirror, err := storage.NewS3ImageMirror(
			os.Getenv("AWS_REGION"),
			bucket,
			os.Getenv("CDN_BASE_URL"),
		)
		if err != nil {
			logger.Warnf("S3 image mirror disabled: %v", err)
		} else {
			if err := mirror.CheckBucketAccess(context.Background()); err != nil {
				logger.Warnf("S3 bucket access check failed: %v", err)
			}
			h.SetImageMirror(mirror)
		}
	}

	// Setup Gin router
	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(otelgin.Middleware("shopsmartly-backend"))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // Configure properly for production
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	if redisClient != nil {
		r.Use(middleware.RedisRateLimitMiddleware(300, time.Minute))
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		// Authentication routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandlers.Register)
			authGroup.POST("/login", authHandlers.Login)

			// OAuth flows; Apple posts the callback as a form
			authGroup.GET("/google", authHandlers.GoogleLogin)
			authGroup.GET("/google/callback", authHandlers.GoogleCallback)
			authGroup.GET("/apple", authHandlers.AppleLogin)
			authGroup.POST("/apple/callback", authHandlers.AppleCallback)

			authGroup.GET("/me", authHandlers.AuthMiddleware(), authHandlers.Me)
		}

		// Product catalog (reads are public)
		products := api.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.GET("/:id", h.GetProduct)
			products.GET("/:id/prices", h.GetProductPrices)
			products.GET("/barcode/:barcode", h.GetProductByBarcode)
			products.POST("", authHandlers.AuthMiddleware(), h.CreateProduct)
			products.PATCH("/:id", authHandlers.AuthMiddleware(), h.UpdateProduct)
			products.DELETE("/:id", authHandlers.AuthMiddleware(), h.DeleteProduct)
		}

		// Ads and affiliate tracking (public, clicks may carry a user)
		api.GET("/ads", h.GetActiveAds)
		api.POST("/ads/:id/impression", h.RecordAdImpression)
		api.POST("/ads/:id/click", h.RecordAdClick)
		api.GET("/affiliate/redirect", authHandlers.OptionalAuthMiddleware(), h.AffiliateRedirect)

		authed := api.Group("")
		authed.Use(authHandlers.AuthMiddleware())
		{
			authed.POST("/scan", h.ScanBarcode)

			authed.GET("/favorites", h.GetFavorites)
			authed.POST("/favorites", h.AddFavorite)
			authed.DELETE("/favorites/:productId", h.RemoveFavorite)

			authed.GET("/shopping-list", h.GetShoppingList)
			authed.POST("/shopping-list", h.AddShoppingListItem)
			authed.DELETE("/shopping-list/completed", h.ClearCompletedItems)
			authed.PATCH("/shopping-list/:id", h.UpdateShoppingListItem)
			authed.DELETE("/shopping-list/:id", h.DeleteShoppingListItem)

			authed.GET("/history", h.GetScanHistory)
			authed.DELETE("/history", h.ClearScanHistory)
			authed.DELETE("/history/:id", h.DeleteScanHistoryEntry)

			authed.GET("/chat/messages", h.GetChatMessages)
			authed.POST("/chat/messages", h.PostChatMessage)

			authed.GET("/subscription", h.GetSubscriptionStatus)
			authed.POST("/subscription/upgrade", h.UpgradeSubscription)
			authed.GET("/subscription/payments", h.GetSubscriptionPayments)

			authed.GET("/analytics/eco", h.GetEcoSummary)
			authed.GET("/analytics/revenue", h.GetRevenueMetrics)
		}
	}

	// Server configuration
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Infof("listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("server failed", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("forced shutdown", err)
	}

	logger.Infof("server exited")
}
