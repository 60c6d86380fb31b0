package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/application/quota"
	"bookgen-ai-api/internal/config"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/infrastructure/llm"
	"bookgen-ai-api/internal/infrastructure/persistence/memory"
	"bookgen-ai-api/internal/infrastructure/persistence/postgres"
	"bookgen-ai-api/pkg/logger"
)

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

// commandContext 懒加载配置与流水线，子命令共享
type commandContext struct {
	configDir string
	store     string
	jsonOut   bool

	cfg      *config.Config
	pipeline *book.Pipeline
	repos    book.Repositories
	usage    *quota.UsageReporter
	cleanup  func()
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.LoadFrom(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.InitWithWriter(os.Stderr, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	c.cfg = cfg
	return cfg, nil
}

// ensurePipeline 按 --store 选择持久化后端构造流水线；redis 节流在命令行下不可用
func (c *commandContext) ensurePipeline(ctx context.Context) (*book.Pipeline, error) {
	if c.pipeline != nil {
		return c.pipeline, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	var usageRepo repository.LLMUsageEventRepository
	switch strings.ToLower(strings.TrimSpace(c.store)) {
	case storeMemory:
		store := memory.NewStore()
		c.repos = book.Repositories{
			Books:          store.Books(),
			Chapters:       store.Chapters(),
			ChapterIndexes: store.ChapterIndexes(),
			BookIndexes:    store.BookIndexes(),
		}
		usageRepo = store.LLMUsageEvents()
	case storePostgres:
		client, err := postgres.NewClient(&cfg.Database.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.cleanup = func() { _ = client.Close() }
		c.repos = book.Repositories{
			Books:          postgres.NewBookRepository(client),
			Chapters:       postgres.NewChapterRepository(client),
			ChapterIndexes: postgres.NewChapterIndexRepository(client),
			BookIndexes:    postgres.NewBookIndexRepository(client),
		}
		usageRepo = postgres.NewLLMUsageEventRepository(client)
	default:
		return nil, fmt.Errorf("unknown store %q (want %s or %s)", c.store, storeMemory, storePostgres)
	}

	gen, err := llm.NewTextGenerator(ctx, cfg, quota.NewLLMUsageRecorder(usageRepo))
	if err != nil {
		return nil, err
	}
	pacer, err := book.NewPacer(cfg.Pipeline.Pacing, nil)
	if err != nil {
		return nil, err
	}

	c.usage = quota.NewUsageReporter(usageRepo)
	c.pipeline = book.NewPipeline(gen, pacer, c.repos, book.OptionsFromConfig(cfg.Pipeline))
	return c.pipeline, nil
}

func (c *commandContext) close() {
	if c.cleanup != nil {
		c.cleanup()
		c.cleanup = nil
	}
}
