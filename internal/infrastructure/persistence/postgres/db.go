package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"bookgen-ai-api/internal/domain/entity"
)

// getDB 返回绑定 ctx 的会话；各仓储方法都是单实体提交，不跨实体开启事务
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern 构造不区分大小写子串匹配的 ILIKE 模式
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}

// Migrate 同步表结构。索引表通过 belongs-to 关系生成级联外键：
// books → chapters → chapter_indexes，books → book_indexes。
func (c *Client) Migrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.Migrate")
	defer span.End()

	if err := c.db.WithContext(ctx).AutoMigrate(
		&entity.Book{},
		&entity.Chapter{},
		&chapterIndexRow{},
		&bookIndexRow{},
		&entity.LLMUsageEvent{},
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
