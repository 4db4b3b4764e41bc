package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"babylog-backend/internal/config"
	"babylog-backend/internal/database"
	"babylog-backend/internal/handlers"
	"babylog-backend/internal/llm"
	"babylog-backend/internal/pipeline"
	"babylog-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.Environment)
	defer logger.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := database.NewStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("failed to connect to database", "error", err)
	}
	defer store.Close()

	if err := database.NewMigrator(store.DB()).Run(); err != nil {
		logger.Fatalw("migration failed", "error", err)
	}

	blobs, err := newContentStore(cfg)
	if err != nil {
		logger.Fatalw("failed to initialize content store", "error", err)
	}

	gateway := llm.NewAnthropicGateway(
		cfg.AnthropicBaseURL,
		cfg.AnthropicAPIKey,
		cfg.LLMModel,
		cfg.LLMMaxTokens,
		time.Duration(cfg.LLMTimeoutSecs)*time.Second,
		logger,
	)
	extractor := llm.NewExtractionClient(gateway, logger)

	processor := pipeline.NewProcessor(store, blobs, extractor, pipeline.NewExecutor(logger), cfg.MaxImageDimension, logger)

	// Uploads abandoned in processing by a crash must be rewound before any
	// request can schedule new runs.
	if err := processor.RecoverStuck(context.Background()); err != nil {
		logger.Fatalw("failed to recover stuck uploads", "error", err)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	uploadsHandler := handlers.NewUploadsHandler(store, processor)
	entriesHandler := handlers.NewEntriesHandler(store)
	dashboardHandler := handlers.NewDashboardHandler(store)

	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/api")
	api.POST("/uploads", uploadsHandler.Create)
	api.GET("/uploads", uploadsHandler.List)
	api.GET("/uploads/:id", uploadsHandler.Get)
	api.POST("/uploads/:id/reprocess", uploadsHandler.Reprocess)

	api.GET("/entries", entriesHandler.List)
	api.POST("/entries", entriesHandler.Create)
	api.PATCH("/entries/:id", entriesHandler.Update)
	api.DELETE("/entries/:id", entriesHandler.Delete)

	api.GET("/dashboard", dashboardHandler.Get)

	logger.Infow("server starting", "port", cfg.Port, "storage_backend", cfg.StorageBackend)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}

func newLogger(environment string) *zap.SugaredLogger {
	var logger *zap.Logger
	var err error
	if environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	return logger.Sugar()
}

func newContentStore(cfg *config.Config) (storage.ContentStore, error) {
	if cfg.StorageBackend == "supabase" {
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket)
	}
	return storage.NewLocal(cfg.UploadDir)
}
