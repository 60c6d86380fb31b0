// Package repository 领域仓储接口；查询不到记录时返回 nil, nil
package repository

import (
	"context"

	"bookgen-ai-api/internal/domain/entity"
)

// BookRepository 书籍仓储接口
type BookRepository interface {
	// Create 创建书籍
	Create(ctx context.Context, book *entity.Book) error

	// GetByID 根据 ID 获取书籍，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Book, error)

	// UpdateStatus 更新书籍状态
	UpdateStatus(ctx context.Context, id string, status entity.BookStatus) error

	// List 按创建时间倒序分页列出书籍，filter 零值字段不参与过滤
	List(ctx context.Context, filter BookFilter, pagination Pagination) (*Page[*entity.Book], error)
}

// BookFilter 书籍列表过滤条件
type BookFilter struct {
	Status   entity.BookStatus
	AuthorID string
}
