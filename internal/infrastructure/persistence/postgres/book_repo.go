package postgres

import (
	"context"
	"fmt"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
)

// BookRepository 书籍仓储实现
type BookRepository struct {
	client *Client
}

var _ repository.BookRepository = (*BookRepository)(nil)

// NewBookRepository 创建书籍仓储
func NewBookRepository(client *Client) *BookRepository {
	return &BookRepository{client: client}
}

// Create 创建书籍
func (r *BookRepository) Create(ctx context.Context, book *entity.Book) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Omit("Chapters").Create(book).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取书籍
func (r *BookRepository) GetByID(ctx context.Context, id string) (*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var book entity.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// UpdateStatus 更新书籍状态
func (r *BookRepository) UpdateStatus(ctx context.Context, id string, status entity.BookStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.Book{}).Where("id = ?", id).Updates(map[string]any{
		"status":      status,
		"is_complete": status == entity.BookStatusGenerated,
	})
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to update book status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("book %s not found", id)
	}
	return nil
}

// List 按创建时间倒序分页
func (r *BookRepository) List(ctx context.Context, filter repository.BookFilter, pagination repository.Pagination) (*repository.Page[*entity.Book], error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.List")
	defer span.End()

	q := getDB(ctx, r.client.db).Model(&entity.Book{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.AuthorID != "" {
		q = q.Where("author_id = ?", filter.AuthorID)
	}

	page := &repository.Page[*entity.Book]{}
	if err := q.Count(&page.Total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if err := q.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&page.Items).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return page, nil
}
