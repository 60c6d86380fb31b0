//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/application/quota"
	"bookgen-ai-api/internal/config"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/domain/service"
	"bookgen-ai-api/internal/infrastructure/messaging"
	"bookgen-ai-api/internal/infrastructure/persistence/postgres"
	"bookgen-ai-api/internal/infrastructure/persistence/redis"
	"bookgen-ai-api/internal/interfaces/http/handler"
	"bookgen-ai-api/internal/interfaces/http/middleware"
	"bookgen-ai-api/internal/interfaces/http/router"
	"bookgen-ai-api/internal/interfaces/worker"
)

// InitializeApp 初始化 API 网关（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		PipelineSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化异步任务执行器
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		PipelineSet,
		ProvideMessagingConsumer,
		worker.NewJobs,
		wire.Bind(new(worker.Pipeline), new(*book.Pipeline)),
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewBookRepository,
	postgres.NewChapterRepository,
	postgres.NewChapterIndexRepository,
	postgres.NewBookIndexRepository,
	postgres.NewLLMUsageEventRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.BookRepository), new(*postgres.BookRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.ChapterIndexRepository), new(*postgres.ChapterIndexRepository)),
	wire.Bind(new(repository.LLMUsageEventRepository), new(*postgres.LLMUsageEventRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideCache,
	redis.NewRateLimiter,
	ProvideBookIndexRepository,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	wire.Bind(new(handler.JobPublisher), new(*messaging.Producer)),
)

// PipelineSet 流水线提供者集合
var PipelineSet = wire.NewSet(
	quota.NewLLMUsageRecorder,
	wire.Bind(new(service.LLMUsageRecorder), new(*quota.LLMUsageRecorder)),
	ProvideTextGenerator,
	ProvidePacer,
	ProvidePipelineOptions,
	wire.Struct(new(book.Repositories), "*"),
	book.NewPipeline,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	quota.NewUsageReporter,
	wire.Bind(new(handler.UsageReader), new(*quota.UsageReporter)),
	ProvideHealthHandler,
	handler.NewBookHandler,
	handler.NewGenerationHandler,
	handler.NewAnalysisHandler,
	handler.NewIndexHandler,
	handler.NewUsageHandler,
	wire.Struct(new(router.Handlers), "*"),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
	router.New,
)
