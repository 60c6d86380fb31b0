package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/infrastructure/messaging"
	"bookgen-ai-api/internal/interfaces/http/dto"
	"bookgen-ai-api/pkg/errors"
	"bookgen-ai-api/pkg/logger"
)

// JobPublisher 异步任务发布接口
type JobPublisher interface {
	PublishBookGenerate(ctx context.Context, job *messaging.BookGenerateJob) (string, error)
	PublishChapterAnalyze(ctx context.Context, job *messaging.ChapterAnalyzeJob) (string, error)
	PublishBookAnalyze(ctx context.Context, job *messaging.BookAnalyzeJob) (string, error)
}

// GenerationHandler 书籍生成处理器
type GenerationHandler struct {
	pipeline  *book.Pipeline
	bookRepo  repository.BookRepository
	publisher JobPublisher
}

// NewGenerationHandler 创建书籍生成处理器；publisher 为 nil 时不支持异步模式
func NewGenerationHandler(pipeline *book.Pipeline, bookRepo repository.BookRepository, publisher JobPublisher) *GenerationHandler {
	return &GenerationHandler{
		pipeline:  pipeline,
		bookRepo:  bookRepo,
		publisher: publisher,
	}
}

// CreateOutline 生成书籍大纲
// @Summary 生成书籍大纲
// @Tags Books
// @Accept json
// @Produce json
// @Param body body dto.CreateOutlineRequest true "大纲请求"
// @Success 200 {object} dto.Response[wfmodel.BookOutline]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/v1/books/outline [post]
func (h *GenerationHandler) CreateOutline(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateOutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	outline, err := h.pipeline.CreateOutline(ctx, req.UserQuery, req.TotalChapters)
	if err != nil {
		logger.Error(ctx, "failed to create outline", err)
		dto.FromError(c, err, "failed to create outline")
		return
	}
	dto.Success(c, outline)
}

// GenerateBook 生成整本书；async=true 时投递到任务队列
// @Summary 生成整本书
// @Tags Books
// @Accept json
// @Produce json
// @Param async query bool false "异步执行"
// @Param body body dto.GenerateBookRequest true "生成请求"
// @Success 201 {object} dto.Response[dto.GenerateBookResponse]
// @Success 202 {object} dto.Response[dto.JobAcceptedResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/books/generate [post]
func (h *GenerationHandler) GenerateBook(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if dto.BindBool(c, "async") {
		if h.publisher == nil {
			dto.ServiceUnavailable(c, "async generation is not configured")
			return
		}
		job := &messaging.BookGenerateJob{
			JobID:         uuid.NewString(),
			UserQuery:     req.UserQuery,
			TotalChapters: req.TotalChapters,
			AuthorID:      req.AuthorID,
			Genre:         req.Genre,
		}
		msgID, err := h.publisher.PublishBookGenerate(ctx, job)
		if err != nil {
			logger.Error(ctx, "failed to publish book generation job", err)
			dto.FromError(c, errors.ErrQueueError.WithError(err), "failed to enqueue job")
			return
		}
		dto.Accepted(c, dto.JobAcceptedResponse{JobID: job.JobID, Type: messaging.JobTypeBookGenerate, StreamMessageID: msgID})
		return
	}

	res, err := h.pipeline.CreateBook(ctx, req.ToGenerationRequest())
	if err != nil {
		logger.Error(ctx, "failed to generate book", err)
		dto.FromError(c, err, "failed to generate book")
		return
	}
	dto.Created(c, dto.ToGenerateBookResponse(res))
}

// GenerateChapters 按给定章节规格为已有书籍生成章节
// @Summary 生成章节
// @Tags Books
// @Accept json
// @Produce json
// @Param bid path string true "书籍 ID"
// @Param body body dto.GenerateChaptersRequest true "章节规格"
// @Success 200 {object} dto.Response[book.ChapterRunReport]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/books/{bid}/chapters/generate [post]
func (h *GenerationHandler) GenerateChapters(c *gin.Context) {
	ctx := c.Request.Context()
	bookID := dto.BindBookID(c)

	var req dto.GenerateChaptersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	b, err := h.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		logger.Error(ctx, "failed to get book", err)
		dto.InternalError(c, "failed to get book")
		return
	}
	if b == nil {
		dto.FromError(c, errors.ErrBookNotFound, "book not found")
		return
	}

	report, err := h.pipeline.GenerateChapters(ctx, req.Chapters, bookID, req.TotalChapters)
	if err != nil {
		dto.FromError(c, err, "failed to generate chapters")
		return
	}
	dto.Success(c, report)
}
