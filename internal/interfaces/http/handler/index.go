package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/interfaces/http/dto"
	"bookgen-ai-api/pkg/errors"
	"bookgen-ai-api/pkg/logger"
)

// IndexHandler 章节索引与整书索引查询处理器
type IndexHandler struct {
	bookRepo         repository.BookRepository
	chapterIndexRepo repository.ChapterIndexRepository
	bookIndexRepo    repository.BookIndexRepository
}

// NewIndexHandler 创建索引查询处理器
func NewIndexHandler(
	bookRepo repository.BookRepository,
	chapterIndexRepo repository.ChapterIndexRepository,
	bookIndexRepo repository.BookIndexRepository,
) *IndexHandler {
	return &IndexHandler{
		bookRepo:         bookRepo,
		chapterIndexRepo: chapterIndexRepo,
		bookIndexRepo:    bookIndexRepo,
	}
}

// GetChapterIndex 获取章节索引
// @Summary 获取章节索引
// @Tags Indexes
// @Produce json
// @Param cid path string true "章节 ID"
// @Success 200 {object} dto.Response[entity.ChapterIndex]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/chapters/{cid}/index [get]
func (h *IndexHandler) GetChapterIndex(c *gin.Context) {
	ctx := c.Request.Context()
	chapterID := dto.BindChapterID(c)

	idx, err := h.chapterIndexRepo.GetByChapter(ctx, chapterID)
	if err != nil {
		logger.Error(ctx, "failed to get chapter index", err, "chapter_id", chapterID)
		dto.InternalError(c, "failed to get chapter index")
		return
	}
	if idx == nil {
		dto.FromError(c, errors.ErrIndexNotFound.WithDetail(chapterID), "chapter index not found")
		return
	}
	dto.Success(c, idx)
}

// GetBookIndex 获取整书索引
// @Summary 获取整书索引
// @Description 无记录时返回 404（absent），否则 status 为 pending/degraded/complete
// @Tags Indexes
// @Produce json
// @Param bid path string true "书籍 ID"
// @Success 200 {object} dto.Response[entity.BookIndex]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/books/{bid}/index [get]
func (h *IndexHandler) GetBookIndex(c *gin.Context) {
	ctx := c.Request.Context()
	bookID := dto.BindBookID(c)

	idx, err := h.bookIndexRepo.GetByBook(ctx, bookID)
	if err != nil {
		logger.Error(ctx, "failed to get book index", err, "book_id", bookID)
		dto.InternalError(c, "failed to get book index")
		return
	}
	if idx == nil {
		dto.FromError(c, errors.ErrBookIndexNotFound.WithDetail(bookID), "book index not found")
		return
	}
	dto.Success(c, idx)
}

// ListBookChapterIndexes 获取书籍下全部章节索引
// @Summary 书籍章节索引列表
// @Tags Indexes
// @Produce json
// @Param bid path string true "书籍 ID"
// @Success 200 {object} dto.Response[[]entity.ChapterIndex]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/books/{bid}/chapter-indexes [get]
func (h *IndexHandler) ListBookChapterIndexes(c *gin.Context) {
	ctx := c.Request.Context()
	bookID := dto.BindBookID(c)

	b, err := h.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		logger.Error(ctx, "failed to get book", err, "book_id", bookID)
		dto.InternalError(c, "failed to get book")
		return
	}
	if b == nil {
		dto.FromError(c, errors.ErrBookNotFound.WithDetail(bookID), "book not found")
		return
	}

	items, err := h.chapterIndexRepo.ListByBook(ctx, bookID)
	if err != nil {
		logger.Error(ctx, "failed to list chapter indexes", err, "book_id", bookID)
		dto.InternalError(c, "failed to list chapter indexes")
		return
	}
	dto.Success(c, nonNilIndexes(items))
}

// SearchChapterIndexes 按人物、事件或情绪检索章节索引，三者择一
// @Summary 检索章节索引
// @Tags Indexes
// @Produce json
// @Param character query string false "人物"
// @Param event query string false "关键事件"
// @Param mood query string false "情绪基调"
// @Success 200 {object} dto.Response[[]entity.ChapterIndex]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/chapter-indexes [get]
func (h *IndexHandler) SearchChapterIndexes(c *gin.Context) {
	ctx := c.Request.Context()
	page := dto.BindPage(c)

	var (
		items []*entity.ChapterIndex
		err   error
	)
	switch {
	case query(c, "character") != "":
		items, err = h.chapterIndexRepo.FindByCharacter(ctx, query(c, "character"), page)
	case query(c, "event") != "":
		items, err = h.chapterIndexRepo.FindByEvent(ctx, query(c, "event"), page)
	case query(c, "mood") != "":
		items, err = h.chapterIndexRepo.FindByMood(ctx, query(c, "mood"), page)
	default:
		dto.BadRequest(c, "one of character, event or mood is required")
		return
	}
	if err != nil {
		logger.Error(ctx, "failed to search chapter indexes", err)
		dto.InternalError(c, "failed to search chapter indexes")
		return
	}
	dto.SuccessWithPage(c, nonNilIndexes(items), dto.NewPageMeta(page, len(items)))
}

// SearchBookIndexes 按主题、类型或基调检索整书索引
// @Summary 检索整书索引
// @Tags Indexes
// @Produce json
// @Param theme query string false "主题"
// @Param genre query string false "类型"
// @Param tone query string false "基调"
// @Success 200 {object} dto.Response[[]entity.BookIndex]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/book-indexes [get]
func (h *IndexHandler) SearchBookIndexes(c *gin.Context) {
	ctx := c.Request.Context()
	page := dto.BindPage(c)

	var (
		items []*entity.BookIndex
		err   error
	)
	switch {
	case query(c, "theme") != "":
		items, err = h.bookIndexRepo.FindByTheme(ctx, query(c, "theme"), page)
	case query(c, "genre") != "":
		items, err = h.bookIndexRepo.FindByGenre(ctx, query(c, "genre"), page)
	case query(c, "tone") != "":
		items, err = h.bookIndexRepo.FindByTone(ctx, query(c, "tone"), page)
	default:
		dto.BadRequest(c, "one of theme, genre or tone is required")
		return
	}
	if err != nil {
		logger.Error(ctx, "failed to search book indexes", err)
		dto.InternalError(c, "failed to search book indexes")
		return
	}
	if items == nil {
		items = []*entity.BookIndex{}
	}
	dto.SuccessWithPage(c, items, dto.NewPageMeta(page, len(items)))
}

func query(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Query(key))
}

func nonNilIndexes(items []*entity.ChapterIndex) []*entity.ChapterIndex {
	if items == nil {
		return []*entity.ChapterIndex{}
	}
	return items
}
