package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/infrastructure/messaging"
	"bookgen-ai-api/internal/interfaces/http/dto"
	"bookgen-ai-api/pkg/errors"
	"bookgen-ai-api/pkg/logger"
)

// AnalysisHandler 章节与整书分析处理器
type AnalysisHandler struct {
	pipeline  *book.Pipeline
	publisher JobPublisher
}

// NewAnalysisHandler 创建分析处理器
func NewAnalysisHandler(pipeline *book.Pipeline, publisher JobPublisher) *AnalysisHandler {
	return &AnalysisHandler{pipeline: pipeline, publisher: publisher}
}

// AnalyzeChapter 分析单个章节
// @Summary 分析章节
// @Tags Analysis
// @Produce json
// @Param cid path string true "章节 ID"
// @Param async query bool false "异步执行"
// @Success 200 {object} dto.Response[book.ChapterAnalysis]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/chapters/{cid}/analyze [post]
func (h *AnalysisHandler) AnalyzeChapter(c *gin.Context) {
	ctx := c.Request.Context()
	chapterID := dto.BindChapterID(c)

	if dto.BindBool(c, "async") {
		if h.publisher == nil {
			dto.ServiceUnavailable(c, "async analysis is not configured")
			return
		}
		job := &messaging.ChapterAnalyzeJob{JobID: uuid.NewString(), ChapterID: chapterID}
		msgID, err := h.publisher.PublishChapterAnalyze(ctx, job)
		if err != nil {
			logger.Error(ctx, "failed to publish chapter analysis job", err)
			dto.FromError(c, errors.ErrQueueError.WithError(err), "failed to enqueue job")
			return
		}
		dto.Accepted(c, dto.JobAcceptedResponse{JobID: job.JobID, Type: messaging.JobTypeChapterAnalyze, StreamMessageID: msgID})
		return
	}

	res, err := h.pipeline.AnalyzeChapter(ctx, chapterID)
	if err != nil {
		logger.Error(ctx, "failed to analyze chapter", err, "chapter_id", chapterID)
		dto.FromError(c, err, "failed to analyze chapter")
		return
	}
	dto.Success(c, res)
}

// AnalyzeBook 整书分析
// @Summary 整书分析
// @Tags Analysis
// @Produce json
// @Param bid path string true "书籍 ID"
// @Param async query bool false "异步执行"
// @Success 200 {object} dto.Response[book.BookAnalysis]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/books/{bid}/analyze [post]
func (h *AnalysisHandler) AnalyzeBook(c *gin.Context) {
	h.analyzeBook(c, false)
}

// AnalyzeBookChapters 批量分析书籍全部章节，analyze_book=true 时随后整书分析
// @Summary 批量章节分析
// @Tags Analysis
// @Produce json
// @Param bid path string true "书籍 ID"
// @Param analyze_book query bool false "完成后进行整书分析"
// @Param async query bool false "异步执行"
// @Success 200 {object} dto.Response[book.BatchAnalysisResult]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/books/{bid}/analyze/chapters [post]
func (h *AnalysisHandler) AnalyzeBookChapters(c *gin.Context) {
	h.analyzeBook(c, true)
}

func (h *AnalysisHandler) analyzeBook(c *gin.Context, withChapters bool) {
	ctx := c.Request.Context()
	bookID := dto.BindBookID(c)

	if dto.BindBool(c, "async") {
		if h.publisher == nil {
			dto.ServiceUnavailable(c, "async analysis is not configured")
			return
		}
		job := &messaging.BookAnalyzeJob{JobID: uuid.NewString(), BookID: bookID, WithChapters: withChapters}
		msgID, err := h.publisher.PublishBookAnalyze(ctx, job)
		if err != nil {
			logger.Error(ctx, "failed to publish book analysis job", err)
			dto.FromError(c, errors.ErrQueueError.WithError(err), "failed to enqueue job")
			return
		}
		dto.Accepted(c, dto.JobAcceptedResponse{JobID: job.JobID, Type: messaging.JobTypeBookAnalyze, StreamMessageID: msgID})
		return
	}

	if withChapters {
		res, err := h.pipeline.AnalyzeBookChapters(ctx, bookID, dto.BindBool(c, "analyze_book"))
		if err != nil {
			logger.Error(ctx, "failed to analyze book chapters", err, "book_id", bookID)
			dto.FromError(c, err, "failed to analyze book chapters")
			return
		}
		dto.Success(c, res)
		return
	}

	res, err := h.pipeline.AnalyzeBook(ctx, bookID)
	if err != nil {
		logger.Error(ctx, "failed to analyze book", err, "book_id", bookID)
		dto.FromError(c, err, "failed to analyze book")
		return
	}
	dto.Success(c, res)
}
