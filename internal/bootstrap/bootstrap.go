// Package bootstrap builds the components shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"

	"glauk-api/internal/adapter"
	"glauk-api/internal/adapter/llm"
	"glauk-api/internal/adapter/queue"
	"glauk-api/internal/adapter/storage"
	"glauk-api/internal/cache"
	"glauk-api/internal/chunker"
	"glauk-api/internal/config"
	"glauk-api/internal/database"
	"glauk-api/internal/domain"
	"glauk-api/internal/extractor"
	"glauk-api/internal/repository"
	"glauk-api/internal/retry"
	"glauk-api/internal/service"
	"glauk-api/internal/worker"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Core holds the connections and repositories every binary needs.
type Core struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Cache   domain.Cache
	Queue   *queue.RedisQueue
	Users   domain.UserRepository
	Courses domain.CourseRepository
	Credits *service.CreditGate
}

// NewCore connects to Oracle and Redis. Close releases both.
func NewCore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Core, error) {
	db, err := database.NewSQLXOracleDB(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	database.Configure(db, cfg.DB.MaxOpenConns, cfg.DB.MaxIdleConns, cfg.DB.ConnMaxLifetime)

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))

	users := repository.NewSQLXUserRepository(db)
	return &Core{
		DB:    db,
		Redis: redisClient,
		Cache: adapter.NewRedisCacheAdapter(redisClient),
		Queue: queue.NewRedisQueue(redisClient, cfg.Queue.Name, queue.Options{
			LockDuration: cfg.Queue.LockDuration,
			ResultTTL:    cfg.Queue.ResultTTL,
			MaxAttempts:  cfg.Queue.MaxAttempts,
		}, log),
		Users:   users,
		Courses: repository.NewSQLXCourseRepository(db),
		Credits: service.NewCreditGate(users, cfg.Credits, log),
	}, nil
}

func (c *Core) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

// NewCompletionClient returns the configured provider wrapped in the retry
// controller and the process-wide pacer.
func NewCompletionClient(cfg *config.Config, log *zap.Logger) (domain.CompletionClient, error) {
	var base domain.CompletionClient
	model := cfg.LLM.Model
	switch cfg.LLM.Provider {
	case "", "openrouter":
		c, err := llm.NewOpenRouterClient(llm.OpenRouterConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Referer: cfg.LLM.Referer,
			Title:   cfg.LLM.Title,
			Timeout: cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, err
		}
		base = c
	case "ollama":
		c, err := llm.NewOllamaClient(cfg.LLM.OllamaServer, cfg.LLM.OllamaModel)
		if err != nil {
			return nil, err
		}
		base = c
		model = cfg.LLM.OllamaModel
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
	log.Info("LLM client initialized", zap.String("provider", cfg.LLM.Provider), zap.String("model", model))

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxJitter:   cfg.Retry.MaxJitter,
		MaxDelay:    cfg.Retry.MaxDelay,
	}
	return retry.NewController(base, retry.NewPacer(cfg.LLM.CallPacing), policy, log), nil
}

// NewWorkerPool builds the job side: generator, processor and pool.
func NewWorkerPool(cfg *config.Config, core *Core, log *zap.Logger) (*worker.Pool, error) {
	client, err := NewCompletionClient(cfg, log)
	if err != nil {
		return nil, err
	}
	generator := service.NewQuizGenerator(client, service.GeneratorOptionsFromConfig(cfg.Pipeline, cfg.LLM), log)
	processor := service.NewQuizJobProcessor(generator, core.Courses, core.Credits, log)
	return worker.NewPool(core.Queue, processor, worker.Options{
		Workers:      cfg.Queue.Workers,
		PollTimeout:  cfg.Queue.PollTimeout,
		ReapInterval: cfg.Queue.ReapInterval,
		LockDuration: cfg.Queue.LockDuration,
	}, log), nil
}

// NewQuizProcessService builds the request side of the pipeline.
func NewQuizProcessService(ctx context.Context, cfg *config.Config, core *Core, log *zap.Logger) (service.QuizProcessService, error) {
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	if s3, ok := store.(*storage.S3Storage); ok {
		if err := s3.EnsureBucket(ctx); err != nil {
			log.Warn("Could not verify storage bucket", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
	}

	chunks := chunker.New(chunker.Options{
		MaxChars:      cfg.Pipeline.ChunkMaxChars,
		OverlapChars:  cfg.Pipeline.ChunkOverlapChars,
		Separator:     cfg.Pipeline.ChunkSeparator,
		MinChunkChars: cfg.Pipeline.MinChunkChars,
		MaxChunks:     cfg.Pipeline.MaxChunks,
	}, log)
	docs := extractor.NewService(store, cfg.Upload.MaxFileSizeBytes(), log)

	return service.NewQuizProcessService(
		core.Users, core.Courses, core.Credits, docs, chunks, core.Queue, core.Cache, cfg.Queue.DedupeTTL, log,
	), nil
}
