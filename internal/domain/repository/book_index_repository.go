// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookgen-ai-api/internal/domain/entity"
)

// BookIndexRepository 整书索引仓储接口
type BookIndexRepository interface {
	// Upsert 按 book_id 写入或覆盖
	Upsert(ctx context.Context, index *entity.BookIndex) error

	// GetByBook 获取整书索引，不存在时返回 nil, nil
	GetByBook(ctx context.Context, bookID string) (*entity.BookIndex, error)

	// FindByTheme 查找主题包含 theme 的整书索引
	FindByTheme(ctx context.Context, theme string, pagination Pagination) ([]*entity.BookIndex, error)

	// FindByGenre 按类型查找
	FindByGenre(ctx context.Context, genre string, pagination Pagination) ([]*entity.BookIndex, error)

	// FindByTone 按基调查找
	FindByTone(ctx context.Context, tone string, pagination Pagination) ([]*entity.BookIndex, error)
}
