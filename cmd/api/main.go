package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/websage/backend/internal/answer"
	"github.com/websage/backend/internal/api/handlers"
	"github.com/websage/backend/internal/cache/redis"
	"github.com/websage/backend/internal/document"
	"github.com/websage/backend/internal/embedding"
	"github.com/websage/backend/internal/extract"
	"github.com/websage/backend/internal/index"
	"github.com/websage/backend/internal/ingest"
	"github.com/websage/backend/internal/llm"
	"github.com/websage/backend/internal/metrics"
	"github.com/websage/backend/internal/middleware/ratelimit"
	"github.com/websage/backend/internal/middleware/security"
	"github.com/websage/backend/internal/session"
	"github.com/websage/backend/internal/storage/sqlite"
	"github.com/websage/backend/pkg/config"
	appLogger "github.com/websage/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting WebSage API Server")

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var pageCache *redis.Client
	if cfg.Redis.Enabled {
		pageCache, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without page cache", zap.Error(err))
			pageCache = nil
		}
	}

	milvusStore, err := index.NewMilvus(
		cfg.Milvus.Endpoint,
		cfg.Milvus.CollectionName,
		cfg.Embedding.Dim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusStore.Close()

	err = milvusStore.EnsureCollection(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to create collection", zap.Error(err))
	}

	timeout := time.Duration(cfg.Extract.TimeoutSec) * time.Second
	orchestrator := extract.NewOrchestrator(
		extract.NewMarkdown(timeout, cfg.Extract.UserAgent, cfg.Extract.MinContentLength, cfg.Extract.Workers),
		extract.NewArticle(timeout, cfg.Extract.MinContentLength),
		extract.NewSimple(timeout, cfg.Extract.UserAgent, cfg.Extract.MinContentLength),
	)

	splitter := document.NewSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap)

	var builder *index.Builder
	embedder, err := embedding.NewClient(cfg.Embedding.APIKey, cfg.Embedding.Model)
	switch {
	case err == nil:
		builder = index.NewBuilder(embedder, milvusStore)
	case errors.Is(err, embedding.ErrNotConfigured):
		appLogger.Warn("No embedding credential configured, indexing disabled")
		builder = index.NewBuilder(nil, milvusStore)
	default:
		appLogger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	var engine *answer.Engine
	llmClient, err := llm.NewClient(cfg.LLM)
	switch {
	case err == nil:
		engine = answer.NewEngine(llmClient, index.DefaultTopK)
		appLogger.Info("Language model backend resolved",
			zap.String("backend", llm.ResolveBackend(cfg.LLM).String()))
	case errors.Is(err, llm.ErrNotConfigured):
		appLogger.Warn("No language model credential configured, answering disabled")
	default:
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	processor := ingest.NewProcessor(orchestrator, splitter, builder, sqliteClient, pageCache)
	sessions := session.NewManager()

	metrics.Register()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.Headers(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: 30})

	extractHandler := handlers.NewExtractHandler(processor, sessions, cfg.Extract.MaxURLsPerBatch)
	answerHandler := handlers.NewAnswerHandler(engine, sessions, sqliteClient)
	historyHandler := handlers.NewHistoryHandler(sqliteClient, sessions)
	wsHandler := handlers.NewWebSocketHandler(engine, sessions)

	api := app.Group("/api/v1")
	api.Use(limiter.Middleware())

	api.Post("/extract", extractHandler.HandleExtract)
	api.Post("/ask", answerHandler.HandleAsk)
	api.Get("/history", historyHandler.GetAnswers)
	api.Get("/batches", historyHandler.GetBatches)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.Handler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/ask", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
