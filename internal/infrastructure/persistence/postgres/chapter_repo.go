package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/pkg/errors"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

var _ repository.ChapterRepository = (*ChapterRepository)(nil)

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Create 创建章节；(book_id, order_index) 已存在时返回 ErrConflict
func (r *ChapterRepository) Create(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Create")
	defer span.End()

	err := getDB(ctx, r.client.db).Create(chapter).Error
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.ErrConflict.WithDetail(fmt.Sprintf("chapter %d already exists for book %s", chapter.OrderIndex, chapter.BookID))
	default:
		span.RecordError(err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// GetByBookAndOrder 根据书籍与序号获取章节
func (r *ChapterRepository) GetByBookAndOrder(ctx context.Context, bookID string, orderIndex int) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByBookAndOrder")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "book_id = ? AND order_index = ?", bookID, orderIndex).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// ListByBook 获取书籍章节列表
func (r *ChapterRepository) ListByBook(ctx context.Context, bookID string) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByBook")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("book_id = ?", bookID).Order("order_index ASC").Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

// CountByBook 统计书籍章节数
func (r *ChapterRepository) CountByBook(ctx context.Context, bookID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CountByBook")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var n int64
	if err := db.Model(&entity.Chapter{}).Where("book_id = ?", bookID).Count(&n).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	return int(n), nil
}
