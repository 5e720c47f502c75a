package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docchat-service/internal/ai"
	"docchat-service/internal/config"
	"docchat-service/internal/logger"
	"docchat-service/internal/queue"
	"docchat-service/internal/telemetry"
	"docchat-service/middleware"
	"docchat-service/routes"
	"docchat-service/services"
	"docchat-service/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	queueConcurrency = 4
	scratchMaxAge    = 6 * time.Hour
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal("Failed to initialize tracer:", err)
	}
	defer shutdownTracer(context.Background())

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	embedder, err := ai.NewEmbedder(ctx, cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	model, err := ai.NewLanguageModel(ctx, cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize language model:", err)
	}
	defer model.Close()

	// Upload catalog (optional)
	var catalog services.DocumentCatalog
	if cfg.MongoURI != "" {
		mongoClient, err := config.ConnectMongoDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			mongoClient.Disconnect(ctx)
		}()
		catalog = services.NewMongoCatalog(mongoClient.Database(cfg.DBName).Collection(config.DocumentsCollection))
		logger.Info("Upload catalog enabled", "db", cfg.DBName)
	}

	storage, err := services.NewDocumentStorage(cfg.DocumentsDir, cfg.MaxFileSize, catalog)
	if err != nil {
		log.Fatal("Failed to initialize document storage:", err)
	}

	store, err := services.NewSQLiteIndexStore(cfg.IndexDir)
	if err != nil {
		log.Fatal("Failed to initialize index store:", err)
	}

	janitor := services.NewJanitor(scratchMaxAge, services.ScratchDirs(cfg.DocumentsDir, cfg.IndexDir)...)
	if err := janitor.Start(time.Hour); err != nil {
		log.Fatal("Failed to start scratch janitor:", err)
	}
	defer janitor.Stop()

	registry := services.NewRegistry(services.RegistryDeps{
		Loader:   services.NewDocumentLoader(cfg.DocumentsDir),
		Embedder: embedder,
		Model:    model,
		Store:    store,
		Metrics:  metrics,
	}, services.RegistryOptions{MaxHistoryTurns: cfg.ChatHistoryMaxTurns})
	defer registry.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.TracingMiddleware(cfg.ServiceName))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	deps := routes.Deps{
		Sessions:      registry,
		Documents:     storage,
		PublicBaseURL: cfg.PublicBaseURL,
	}

	// Rate limiting and async loads (optional)
	var chatMiddleware []gin.HandlerFunc
	var loadQueue *queue.Queue
	if cfg.RedisURL != "" {
		rdb, err := config.NewRedisClient(cfg)
		if err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer rdb.Close()
		chatMiddleware = append(chatMiddleware, middleware.RateLimitMiddleware(rdb, cfg.RateLimitReqs, cfg.RateLimitWindow))

		loadQueue = newLoadQueue(rdb, registry)
		if err := loadQueue.Start(); err != nil {
			log.Fatal("Failed to start load queue:", err)
		}
		deps.Queue = loadQueue
		logger.Info("Redis features enabled", "addr", rdb.Options().Addr)
	}

	routes.Setup(router, deps, chatMiddleware...)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port,
			"llm_provider", cfg.LLMProvider, "embeddings_provider", cfg.EmbeddingsProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if loadQueue != nil {
		if err := loadQueue.Shutdown(); err != nil {
			logger.Error("Failed to stop load queue", "error", err)
		}
	}

	logger.Info("Server exited")
}

func newLoadQueue(rdb *redis.Client, loader queue.Loader) *queue.Queue {
	processor := queue.NewTaskProcessor(loader)
	return queue.NewQueue(queue.RedisConnOpt(rdb.Options()), processor, queueConcurrency)
}
