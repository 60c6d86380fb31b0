// Package main 数据库初始化入口：建表与索引
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"bookgen-ai-api/internal/config"
	"bookgen-ai-api/internal/infrastructure/persistence/postgres"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting schema bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 由本程序显式迁移，避免 NewClient 重复执行
	pgCfg := cfg.Database.Postgres
	pgCfg.AutoMigrate = false

	// 2. 连接 PostgreSQL
	client, err := postgres.NewClient(&pgCfg)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// 3. 迁移表结构
	if err := client.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	fmt.Printf("Schema ready on %s:%d/%s\n", pgCfg.Host, pgCfg.Port, pgCfg.Database)
}
