// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookgen-ai-api/internal/domain/entity"
)

// ChapterIndexRepository 章节索引仓储接口
type ChapterIndexRepository interface {
	// Upsert 按 chapter_id 写入或覆盖
	Upsert(ctx context.Context, index *entity.ChapterIndex) error

	// GetByChapter 获取章节索引，不存在时返回 nil, nil
	GetByChapter(ctx context.Context, chapterID string) (*entity.ChapterIndex, error)

	// ListByBook 获取书籍下全部章节索引
	ListByBook(ctx context.Context, bookID string) ([]*entity.ChapterIndex, error)

	// FindByCharacter 查找出场人物包含 name 的章节索引（不区分大小写的子串匹配）
	FindByCharacter(ctx context.Context, name string, pagination Pagination) ([]*entity.ChapterIndex, error)

	// FindByEvent 查找关键事件包含 event 的章节索引
	FindByEvent(ctx context.Context, event string, pagination Pagination) ([]*entity.ChapterIndex, error)

	// FindByMood 查找情绪基调匹配的章节索引
	FindByMood(ctx context.Context, mood string, pagination Pagination) ([]*entity.ChapterIndex, error)
}
