// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookgen-ai-api/internal/domain/entity"
)

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// Create 创建章节；(book_id, order_index) 冲突时返回错误
	Create(ctx context.Context, chapter *entity.Chapter) error

	// GetByID 根据 ID 获取章节，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// GetByBookAndOrder 根据书籍和序号获取章节
	GetByBookAndOrder(ctx context.Context, bookID string, orderIndex int) (*entity.Chapter, error)

	// ListByBook 获取书籍章节列表（按 order_index 升序）
	ListByBook(ctx context.Context, bookID string) ([]*entity.Chapter, error)

	// CountByBook 统计书籍章节数
	CountByBook(ctx context.Context, bookID string) (int, error)
}
