// Package main 异步任务执行器入口，消费 Redis Stream 中的生成与分析任务
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bookgen-ai-api/internal/config"
	"bookgen-ai-api/internal/wire"
	"bookgen-ai-api/pkg/logger"
	"bookgen-ai-api/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "job-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name + "-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	w, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize worker: %w", err)
	}
	defer cleanup()

	w.Jobs.Register(w.Consumer)
	if err := w.Consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	logger.Info(ctx, "job-worker started",
		"llm_provider", cfg.LLM.DefaultProvider,
		"retry_limit", cfg.Messaging.RedisStream.RetryLimit,
	)

	<-ctx.Done()
	logger.Info(context.Background(), "job-worker shutting down, waiting for in-flight jobs")
	w.Consumer.Stop()
	return nil
}
