// Package memory 提供进程内仓储实现，用于测试与离线运行
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
)

// Store 进程内数据集，各仓储共享同一把锁
type Store struct {
	mu             sync.RWMutex
	books          map[string]entity.Book
	chapters       map[string]entity.Chapter
	chapterIndexes map[string]entity.ChapterIndex
	bookIndexes    map[string]entity.BookIndex
	usage          []entity.LLMUsageEvent
}

func NewStore() *Store {
	return &Store{
		books:          make(map[string]entity.Book),
		chapters:       make(map[string]entity.Chapter),
		chapterIndexes: make(map[string]entity.ChapterIndex),
		bookIndexes:    make(map[string]entity.BookIndex),
	}
}

func (s *Store) Books() *BookRepository                   { return &BookRepository{s: s} }
func (s *Store) Chapters() *ChapterRepository             { return &ChapterRepository{s: s} }
func (s *Store) ChapterIndexes() *ChapterIndexRepository  { return &ChapterIndexRepository{s: s} }
func (s *Store) BookIndexes() *BookIndexRepository        { return &BookIndexRepository{s: s} }
func (s *Store) LLMUsageEvents() *LLMUsageEventRepository { return &LLMUsageEventRepository{s: s} }

// BookRepository 书籍仓储
type BookRepository struct{ s *Store }

var _ repository.BookRepository = (*BookRepository)(nil)

func (r *BookRepository) Create(_ context.Context, b *entity.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[b.ID]; ok {
		return fmt.Errorf("book %s already exists", b.ID)
	}
	r.s.books[b.ID] = *b
	return nil
}

func (r *BookRepository) GetByID(_ context.Context, id string) (*entity.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.books[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *BookRepository) UpdateStatus(_ context.Context, id string, status entity.BookStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.books[id]
	if !ok {
		return fmt.Errorf("book %s not found", id)
	}
	b.Status = status
	b.IsComplete = status == entity.BookStatusGenerated
	b.UpdatedAt = time.Now()
	r.s.books[id] = b
	return nil
}

func (r *BookRepository) List(_ context.Context, filter repository.BookFilter, pagination repository.Pagination) (*repository.Page[*entity.Book], error) {
	r.s.mu.RLock()
	all := make([]*entity.Book, 0, len(r.s.books))
	for _, b := range r.s.books {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.AuthorID != "" && b.AuthorID != filter.AuthorID {
			continue
		}
		all = append(all, &b)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return &repository.Page[*entity.Book]{Items: page(all, pagination), Total: int64(len(all))}, nil
}

// ChapterRepository 章节仓储
type ChapterRepository struct{ s *Store }

var _ repository.ChapterRepository = (*ChapterRepository)(nil)

func (r *ChapterRepository) Create(_ context.Context, ch *entity.Chapter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[ch.BookID]; !ok {
		return fmt.Errorf("book %s not found", ch.BookID)
	}
	for _, existing := range r.s.chapters {
		if existing.BookID == ch.BookID && existing.OrderIndex == ch.OrderIndex {
			return fmt.Errorf("chapter %d of book %s already exists", ch.OrderIndex, ch.BookID)
		}
	}
	r.s.chapters[ch.ID] = *ch
	return nil
}

func (r *ChapterRepository) GetByID(_ context.Context, id string) (*entity.Chapter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ch, ok := r.s.chapters[id]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (r *ChapterRepository) GetByBookAndOrder(_ context.Context, bookID string, orderIndex int) (*entity.Chapter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, ch := range r.s.chapters {
		if ch.BookID == bookID && ch.OrderIndex == orderIndex {
			return &ch, nil
		}
	}
	return nil, nil
}

func (r *ChapterRepository) ListByBook(_ context.Context, bookID string) ([]*entity.Chapter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Chapter, 0)
	for _, ch := range r.s.chapters {
		if ch.BookID == bookID {
			out = append(out, &ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *ChapterRepository) CountByBook(ctx context.Context, bookID string) (int, error) {
	list, err := r.ListByBook(ctx, bookID)
	return len(list), err
}

// ChapterIndexRepository 章节索引仓储
type ChapterIndexRepository struct{ s *Store }

var _ repository.ChapterIndexRepository = (*ChapterIndexRepository)(nil)

func (r *ChapterIndexRepository) Upsert(_ context.Context, idx *entity.ChapterIndex) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.chapters[idx.ChapterID]; !ok {
		return fmt.Errorf("chapter %s not found", idx.ChapterID)
	}
	r.s.chapterIndexes[idx.ChapterID] = cloneChapterIndex(*idx)
	return nil
}

func (r *ChapterIndexRepository) GetByChapter(_ context.Context, chapterID string) (*entity.ChapterIndex, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	idx, ok := r.s.chapterIndexes[chapterID]
	if !ok {
		return nil, nil
	}
	out := cloneChapterIndex(idx)
	return &out, nil
}

func (r *ChapterIndexRepository) ListByBook(_ context.Context, bookID string) ([]*entity.ChapterIndex, error) {
	return r.filter(func(idx entity.ChapterIndex) bool { return idx.BookID == bookID }, repository.Pagination{PageSize: math.MaxInt32}), nil
}

func (r *ChapterIndexRepository) FindByCharacter(_ context.Context, name string, p repository.Pagination) ([]*entity.ChapterIndex, error) {
	return r.filter(func(idx entity.ChapterIndex) bool { return anyContains(idx.Characters, name) }, p), nil
}

func (r *ChapterIndexRepository) FindByEvent(_ context.Context, event string, p repository.Pagination) ([]*entity.ChapterIndex, error) {
	return r.filter(func(idx entity.ChapterIndex) bool { return anyContains(idx.KeyEvents, event) }, p), nil
}

func (r *ChapterIndexRepository) FindByMood(_ context.Context, mood string, p repository.Pagination) ([]*entity.ChapterIndex, error) {
	return r.filter(func(idx entity.ChapterIndex) bool { return containsFold(idx.Mood, mood) }, p), nil
}

// filter 按章节序号排序后分页
func (r *ChapterIndexRepository) filter(match func(entity.ChapterIndex) bool, p repository.Pagination) []*entity.ChapterIndex {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.ChapterIndex, 0)
	for _, idx := range r.s.chapterIndexes {
		if match(idx) {
			c := cloneChapterIndex(idx)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := r.s.chapters[out[i].ChapterID], r.s.chapters[out[j].ChapterID]
		if a.BookID != b.BookID {
			return a.BookID < b.BookID
		}
		return a.OrderIndex < b.OrderIndex
	})
	return page(out, p)
}

// BookIndexRepository 整书索引仓储
type BookIndexRepository struct{ s *Store }

var _ repository.BookIndexRepository = (*BookIndexRepository)(nil)

func (r *BookIndexRepository) Upsert(_ context.Context, idx *entity.BookIndex) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[idx.BookID]; !ok {
		return fmt.Errorf("book %s not found", idx.BookID)
	}
	r.s.bookIndexes[idx.BookID] = cloneBookIndex(*idx)
	return nil
}

func (r *BookIndexRepository) GetByBook(_ context.Context, bookID string) (*entity.BookIndex, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	idx, ok := r.s.bookIndexes[bookID]
	if !ok {
		return nil, nil
	}
	out := cloneBookIndex(idx)
	return &out, nil
}

func (r *BookIndexRepository) FindByTheme(_ context.Context, theme string, p repository.Pagination) ([]*entity.BookIndex, error) {
	return r.filter(func(idx entity.BookIndex) bool { return anyContains(idx.Themes, theme) }, p), nil
}

func (r *BookIndexRepository) FindByGenre(_ context.Context, genre string, p repository.Pagination) ([]*entity.BookIndex, error) {
	return r.filter(func(idx entity.BookIndex) bool { return containsFold(idx.Genre, genre) }, p), nil
}

func (r *BookIndexRepository) FindByTone(_ context.Context, tone string, p repository.Pagination) ([]*entity.BookIndex, error) {
	return r.filter(func(idx entity.BookIndex) bool { return containsFold(idx.Tone, tone) }, p), nil
}

func (r *BookIndexRepository) filter(match func(entity.BookIndex) bool, p repository.Pagination) []*entity.BookIndex {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.BookIndex, 0)
	for _, idx := range r.s.bookIndexes {
		if match(idx) {
			c := cloneBookIndex(idx)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAnalyzed.After(out[j].LastAnalyzed) })
	return page(out, p)
}

// LLMUsageEventRepository 用量流水仓储
type LLMUsageEventRepository struct{ s *Store }

var _ repository.LLMUsageEventRepository = (*LLMUsageEventRepository)(nil)

func (r *LLMUsageEventRepository) Create(_ context.Context, evt *entity.LLMUsageEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	r.s.usage = append(r.s.usage, *evt)
	return nil
}

func (r *LLMUsageEventRepository) SummarizeBook(_ context.Context, bookID string, since time.Time) (repository.UsageSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var sum repository.UsageSummary
	for i := range r.s.usage {
		evt := &r.s.usage[i]
		if evt.BookID == bookID && !evt.CreatedAt.Before(since) {
			sum.Add(evt)
		}
	}
	return sum, nil
}

func page[T any](items []T, p repository.Pagination) []T {
	off := p.Offset()
	if off >= len(items) {
		return []T{}
	}
	end := off + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func anyContains(items []string, sub string) bool {
	for _, it := range items {
		if containsFold(it, sub) {
			return true
		}
	}
	return false
}

func cloneChapterIndex(idx entity.ChapterIndex) entity.ChapterIndex {
	idx.KeyEvents = append([]string{}, idx.KeyEvents...)
	idx.Characters = append([]string{}, idx.Characters...)
	return idx
}

func cloneBookIndex(idx entity.BookIndex) entity.BookIndex {
	idx.Themes = append([]string{}, idx.Themes...)
	idx.Characters = append([]string{}, idx.Characters...)
	idx.PlotPoints = append([]string{}, idx.PlotPoints...)
	idx.Cliffhangers = append([]string{}, idx.Cliffhangers...)
	return idx
}
