package bootstrap

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/notebase/backend-go/internal/auth"
	"github.com/notebase/backend-go/internal/config"
	"github.com/notebase/backend-go/internal/database"
	"github.com/notebase/backend-go/internal/gemini"
	"github.com/notebase/backend-go/internal/kafka"
	"github.com/notebase/backend-go/internal/logger"
	"github.com/notebase/backend-go/internal/rag"
	"github.com/notebase/backend-go/internal/repository"
	"github.com/notebase/backend-go/internal/services"
	"github.com/notebase/backend-go/internal/storage"
	"go.uber.org/zap"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error

	JWT       *auth.JWTService
	Auth      *services.AuthService
	Notebooks *services.NotebookService
	Chat      *services.ChatService
	Tasks     *services.TaskService
	Documents repository.DocumentRepository
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

// Init bootstraps configuration, logger, database connections and other shared
// infrastructure components required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{}

	if _, err := database.InitDB(); err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		return database.CloseDB()
	})

	// Redis可选，失败不阻塞启动
	if cfg.Redis.Enabled {
		if _, err := database.InitRedis(); err != nil {
			logger.Warn("Failed to initialize Redis", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				return database.CloseRedis()
			})
		}
	}

	// MinIO可选
	var archive services.RawArchiver
	if cfg.Storage.Enabled {
		objectStore, err := storage.NewObjectStore(storage.Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Warn("Failed to initialize MinIO", zap.Error(err))
		} else {
			archive = objectStore
		}
	}

	// Kafka可选
	var events services.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Warn("Failed to initialize Kafka producer", zap.Error(err))
		} else {
			events = producer
			app.cleanupTasks = append(app.cleanupTasks, producer.Close)
		}
	}

	embedder, generator := buildAIProviders(cfg)

	store, err := buildVectorStore(cfg, embedder)
	if err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, store.Close)

	chunker, err := rag.NewChunker(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	users := repository.NewUserRepository(database.DB)
	documents := repository.NewDocumentRepository(database.DB)
	notebooks := repository.NewNotebookRepository(database.DB)
	tasks := repository.NewTaskRepository(database.DB)

	app.JWT = auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiresIn)*time.Second)
	app.Auth = services.NewAuthService(users, app.JWT)
	app.Documents = documents
	app.Notebooks = services.NewNotebookService(notebooks, documents)

	ingestion := services.NewIngestionService(
		documents,
		rag.NewExtractor(),
		chunker,
		embedder,
		store,
		archive,
		events,
	)
	app.Tasks = services.NewTaskService(tasks, ingestion, cfg.Ingestion.Workers)
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		app.Tasks.Close()
		return nil
	})

	cache := services.NewQueryEmbeddingCache(database.RedisClient, cfg.AI.EmbeddingModel)
	app.Chat = services.NewChatService(
		notebooks,
		embedder,
		store,
		generator,
		cache,
		cfg.AI.SearchTopN,
		cfg.AI.ContextSeparator,
	)

	return app, nil
}

// buildAIProviders 根据配置选择向量化与生成服务提供方
func buildAIProviders(cfg *config.Config) (rag.Embedder, rag.Generator) {
	embedTimeout := time.Duration(cfg.AI.EmbedTimeoutSec) * time.Second
	generateTimeout := time.Duration(cfg.AI.GenerateTimeout) * time.Second

	switch cfg.AI.Provider {
	case "openai":
		if cfg.AI.OpenAIAPIKey == "" {
			logger.Warn("OpenAI API key not configured, AI services will not be available")
			return &rag.NoopEmbedder{}, &rag.NoopGenerator{}
		}
		embedder := rag.NewOpenAIEmbedder(cfg.AI.OpenAIAPIKey, cfg.AI.EmbeddingModel, cfg.AI.EmbedBatchSize, embedTimeout)
		generator := rag.NewOpenAIGenerator(cfg.AI.OpenAIAPIKey, cfg.AI.GenerationModel, generateTimeout)
		return embedder, generator
	default:
		client := gemini.NewClient(cfg.AI.GeminiAPIKey)
		if client == nil {
			return &rag.NoopEmbedder{}, &rag.NoopGenerator{}
		}
		embedder := rag.NewGeminiEmbedder(client, cfg.AI.EmbeddingModel, cfg.AI.EmbedBatchSize, embedTimeout)
		generator := rag.NewGeminiGenerator(client, cfg.AI.GenerationModel, generateTimeout)
		return embedder, generator
	}
}

// buildVectorStore 根据配置选择向量存储提供方
// 未显式配置维度时以向量化模型的输出维度为准
func buildVectorStore(cfg *config.Config, embedder rag.Embedder) (rag.VectorStore, error) {
	vs := cfg.Ingestion.VectorStore
	switch vs.Provider {
	case "qdrant":
		return rag.NewQdrantVectorStore(rag.QdrantOptions{
			Endpoint:   vs.Qdrant.Endpoint,
			APIKey:     vs.Qdrant.APIKey,
			VectorSize: resolveVectorSize(vs.Qdrant.VectorSize, embedder),
			UseTLS:     vs.Qdrant.TLS,
		})
	default:
		return rag.NewMilvusVectorStore(rag.MilvusOptions{
			Address:    vs.Milvus.Address,
			Username:   vs.Milvus.Username,
			Password:   vs.Milvus.Password,
			Database:   vs.Milvus.Database,
			UseTLS:     vs.Milvus.TLS,
			VectorSize: resolveVectorSize(vs.Milvus.VectorSize, embedder),
		})
	}
}

// resolveVectorSize 显式配置优先，否则跟随向量化模型的输出维度
func resolveVectorSize(configured int, embedder rag.Embedder) int {
	if configured > 0 {
		return configured
	}
	return embedder.Dimensions()
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	logger.Sync()
}
