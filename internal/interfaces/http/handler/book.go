package handler

import (
	"github.com/gin-gonic/gin"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/interfaces/http/dto"
	"bookgen-ai-api/pkg/errors"
	"bookgen-ai-api/pkg/logger"
)

// BookHandler 书籍与章节只读查询
type BookHandler struct {
	books    repository.BookRepository
	chapters repository.ChapterRepository
}

func NewBookHandler(books repository.BookRepository, chapters repository.ChapterRepository) *BookHandler {
	return &BookHandler{books: books, chapters: chapters}
}

var bookStatuses = map[entity.BookStatus]bool{
	entity.BookStatusDraft:      true,
	entity.BookStatusGenerating: true,
	entity.BookStatusGenerated:  true,
	entity.BookStatusPartial:    true,
	entity.BookStatusFailed:     true,
}

// ListBooks 分页列出书籍
// @Summary 书籍列表
// @Tags Books
// @Produce json
// @Param status query string false "draft|generating|generated|partial|failed"
// @Param author_id query string false "作者 ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} dto.Response[[]dto.BookResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	ctx := c.Request.Context()
	page := dto.BindPage(c)

	filter := repository.BookFilter{
		Status:   entity.BookStatus(query(c, "status")),
		AuthorID: query(c, "author_id"),
	}
	if filter.Status != "" && !bookStatuses[filter.Status] {
		dto.BadRequest(c, "unknown status: "+string(filter.Status))
		return
	}

	res, err := h.books.List(ctx, filter, page)
	if err != nil {
		logger.Error(ctx, "failed to list books", err)
		dto.InternalError(c, "failed to list books")
		return
	}

	items := make([]*dto.BookResponse, 0, len(res.Items))
	for _, b := range res.Items {
		items = append(items, dto.ToBookResponse(b))
	}
	meta := dto.NewPageMeta(page, len(items))
	meta.Total = res.Total
	dto.SuccessWithPage(c, items, meta)
}

// GetBook 书籍详情与章节目录（不含正文）
// @Summary 书籍详情
// @Tags Books
// @Produce json
// @Param bid path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.BookDetailResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/books/{bid} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	ctx := c.Request.Context()
	bookID := dto.BindBookID(c)

	b, err := h.books.GetByID(ctx, bookID)
	if err != nil {
		logger.Error(ctx, "failed to get book", err, "book_id", bookID)
		dto.InternalError(c, "failed to get book")
		return
	}
	if b == nil {
		dto.FromError(c, errors.ErrBookNotFound.WithDetail(bookID), "book not found")
		return
	}

	chapters, err := h.chapters.ListByBook(ctx, bookID)
	if err != nil {
		logger.Error(ctx, "failed to list chapters", err, "book_id", bookID)
		dto.InternalError(c, "failed to list chapters")
		return
	}
	dto.Success(c, dto.ToBookDetailResponse(b, chapters))
}

// GetChapter 章节正文
// @Summary 章节详情
// @Tags Books
// @Produce json
// @Param cid path string true "章节 ID"
// @Success 200 {object} dto.Response[entity.Chapter]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/chapters/{cid} [get]
func (h *BookHandler) GetChapter(c *gin.Context) {
	ctx := c.Request.Context()
	chapterID := dto.BindChapterID(c)

	ch, err := h.chapters.GetByID(ctx, chapterID)
	if err != nil {
		logger.Error(ctx, "failed to get chapter", err, "chapter_id", chapterID)
		dto.InternalError(c, "failed to get chapter")
		return
	}
	if ch == nil {
		dto.FromError(c, errors.ErrChapterNotFound.WithDetail(chapterID), "chapter not found")
		return
	}
	dto.Success(c, ch)
}
