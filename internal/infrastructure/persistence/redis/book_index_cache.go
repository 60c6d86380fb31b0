package redis

import (
	"context"
	"time"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/pkg/logger"
)

// CachedBookIndexRepository 整书索引读缓存装饰器；检索类查询直接透传到底层仓储。
// 缺失的索引（nil）同样会被缓存，Upsert 后立即失效。
type CachedBookIndexRepository struct {
	repository.BookIndexRepository
	cache *Cache
	ttl   time.Duration
}

var _ repository.BookIndexRepository = (*CachedBookIndexRepository)(nil)

func NewCachedBookIndexRepository(inner repository.BookIndexRepository, cache *Cache, ttl time.Duration) *CachedBookIndexRepository {
	return &CachedBookIndexRepository{BookIndexRepository: inner, cache: cache, ttl: ttl}
}

func (r *CachedBookIndexRepository) GetByBook(ctx context.Context, bookID string) (*entity.BookIndex, error) {
	idx, err := GetOrLoad(ctx, r.cache, bookID, r.ttl, func(ctx context.Context) (*entity.BookIndex, error) {
		return r.BookIndexRepository.GetByBook(ctx, bookID)
	})
	if err != nil {
		logger.Warn(ctx, "cached book index read failed, reading through", "error", err.Error())
		return r.BookIndexRepository.GetByBook(ctx, bookID)
	}
	return idx, nil
}

func (r *CachedBookIndexRepository) Upsert(ctx context.Context, idx *entity.BookIndex) error {
	if err := r.BookIndexRepository.Upsert(ctx, idx); err != nil {
		return err
	}
	if err := r.cache.Invalidate(ctx, idx.BookID); err != nil {
		logger.Warn(ctx, "failed to invalidate book index cache", "book_id", idx.BookID, "error", err.Error())
	}
	return nil
}
