package wire

import (
	"context"
	"fmt"
	"os"
	"strings"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/config"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/domain/service"
	"bookgen-ai-api/internal/infrastructure/llm"
	"bookgen-ai-api/internal/infrastructure/messaging"
	"bookgen-ai-api/internal/infrastructure/persistence/postgres"
	"bookgen-ai-api/internal/infrastructure/persistence/redis"
	"bookgen-ai-api/internal/interfaces/http/handler"
	"bookgen-ai-api/internal/interfaces/worker"
	workflowport "bookgen-ai-api/internal/workflow/port"
)

// Worker 任务执行器依赖容器
type Worker struct {
	Consumer *messaging.Consumer
	Jobs     *worker.Jobs
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideMessagingConsumer 提供任务队列消费者
func ProvideMessagingConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamBookJobs,
		Group:         messaging.ConsumerGroupJobWorker.WithPrefix(rs.ConsumerGroupPrefix),
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff:       messaging.BackoffFromConfig(rs.RetryBackoff),

		DLQAlertThreshold: rs.DLQAlertThreshold,
	})
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// ProvideCache 提供整书索引读缓存
func ProvideCache(client *redis.Client) *redis.Cache {
	return redis.NewCache(client, "book_index")
}

// ProvideBookIndexRepository 配置了 TTL 时为整书索引仓储加上读缓存
func ProvideBookIndexRepository(pg *postgres.BookIndexRepository, cache *redis.Cache, cfg *config.Config) repository.BookIndexRepository {
	if cfg.Cache.BookIndexTTL <= 0 {
		return pg
	}
	return redis.NewCachedBookIndexRepository(pg, cache, cfg.Cache.BookIndexTTL)
}

// ProvideTextGenerator 按默认提供商构造带用量记录的文本生成网关
func ProvideTextGenerator(ctx context.Context, cfg *config.Config, recorder service.LLMUsageRecorder) (workflowport.TextGenerator, error) {
	return llm.NewTextGenerator(ctx, cfg, recorder)
}

// ProvidePacer 按配置构造章节节流器；redis 模式共享跨进程窗口
func ProvidePacer(cfg *config.Config, limiter *redis.RateLimiter) (book.Pacer, error) {
	pacing := cfg.Pipeline.Pacing
	var distributed book.Pacer
	if strings.EqualFold(strings.TrimSpace(pacing.Mode), book.PacingRedis) && limiter != nil {
		distributed = redis.NewPacer(limiter, pacing.Key, pacing.Interval, pacing.Burst)
	}
	return book.NewPacer(pacing, distributed)
}

// ProvidePipelineOptions 提供流水线选项
func ProvidePipelineOptions(cfg *config.Config) book.Options {
	return book.OptionsFromConfig(cfg.Pipeline)
}

// ProvideHealthHandler 提供健康检查处理器，PostgreSQL 与 Redis 均为必需依赖
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version,
		handler.Dependency{Name: "postgres", Checker: pg, Required: true},
		handler.Dependency{Name: "redis", Checker: rc, Required: true},
	)
}
