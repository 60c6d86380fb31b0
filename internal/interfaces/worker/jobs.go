// Package worker 将任务队列消息分派到书籍流水线
package worker

import (
	"context"
	stderrors "errors"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/infrastructure/messaging"
	"bookgen-ai-api/pkg/errors"
	"bookgen-ai-api/pkg/logger"
)

// Pipeline 任务执行所需的流水线能力
type Pipeline interface {
	CreateBook(ctx context.Context, req book.GenerationRequest) (*book.GenerationResult, error)
	AnalyzeChapter(ctx context.Context, chapterID string) (*book.ChapterAnalysis, error)
	AnalyzeBook(ctx context.Context, bookID string) (*book.BookAnalysis, error)
	AnalyzeBookChapters(ctx context.Context, bookID string, analyzeBook bool) (*book.BatchAnalysisResult, error)
}

// Registrar 消息处理器注册接口
type Registrar interface {
	RegisterHandler(msgType string, handler messaging.MessageHandler)
}

// Jobs 任务处理器集合
type Jobs struct {
	pipeline Pipeline
}

// NewJobs 创建任务处理器集合
func NewJobs(pipeline Pipeline) *Jobs {
	return &Jobs{pipeline: pipeline}
}

// Register 注册全部任务类型
func (j *Jobs) Register(r Registrar) {
	r.RegisterHandler(messaging.JobTypeBookGenerate, j.BookGenerate)
	r.RegisterHandler(messaging.JobTypeChapterAnalyze, j.ChapterAnalyze)
	r.RegisterHandler(messaging.JobTypeBookAnalyze, j.BookAnalyze)
}

// BookGenerate 执行整书生成。
// 书籍一旦创建，重投会生成另一本书，因此只有大纲失败（尚未落库）才交给队列重试。
func (j *Jobs) BookGenerate(ctx context.Context, msg *messaging.Message) error {
	var job messaging.BookGenerateJob
	if err := msg.UnmarshalPayload(&job); err != nil {
		logger.Error(ctx, "invalid book generation payload", err)
		return nil
	}

	res, err := j.pipeline.CreateBook(ctx, book.GenerationRequest{
		UserQuery:     job.UserQuery,
		TotalChapters: job.TotalChapters,
		AuthorID:      job.AuthorID,
		Genre:         job.Genre,
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrOutlineFailed) {
			return err
		}
		logger.Error(ctx, "book generation job failed", err)
		return nil
	}

	ctx = logger.WithContext(ctx, logger.BookIDKey, res.Book.ID)
	logger.Info(ctx, "book generation job finished",
		"status", res.Book.Status,
		"succeeded", len(res.Report.Succeeded),
		"skipped", len(res.Report.Skipped),
	)
	return nil
}

// ChapterAnalyze 执行章节分析，索引按章节覆盖写入，可安全重试
func (j *Jobs) ChapterAnalyze(ctx context.Context, msg *messaging.Message) error {
	var job messaging.ChapterAnalyzeJob
	if err := msg.UnmarshalPayload(&job); err != nil {
		logger.Error(ctx, "invalid chapter analysis payload", err)
		return nil
	}
	ctx = logger.WithContext(ctx, logger.ChapterIDKey, job.ChapterID)

	res, err := j.pipeline.AnalyzeChapter(ctx, job.ChapterID)
	if err != nil {
		return retryable(ctx, "chapter analysis job failed", err)
	}
	logger.Info(ctx, "chapter analysis job finished", "success", res.AIAnalysis.Success)
	return nil
}

// BookAnalyze 执行整书分析，WithChapters 时先批量分析章节
func (j *Jobs) BookAnalyze(ctx context.Context, msg *messaging.Message) error {
	var job messaging.BookAnalyzeJob
	if err := msg.UnmarshalPayload(&job); err != nil {
		logger.Error(ctx, "invalid book analysis payload", err)
		return nil
	}
	ctx = logger.WithContext(ctx, logger.BookIDKey, job.BookID)

	if job.WithChapters {
		res, err := j.pipeline.AnalyzeBookChapters(ctx, job.BookID, true)
		if err != nil {
			return retryable(ctx, "batch analysis job failed", err)
		}
		logger.Info(ctx, "batch analysis job finished",
			"analyzed", len(res.Chapters),
			"failed", len(res.Failed),
		)
		return nil
	}

	res, err := j.pipeline.AnalyzeBook(ctx, job.BookID)
	if err != nil {
		return retryable(ctx, "book analysis job failed", err)
	}
	logger.Info(ctx, "book analysis job finished", "status", res.Status)
	return nil
}

// retryable 输入类错误重试无意义，直接确认；其余返回给队列按退避重试
func retryable(ctx context.Context, msg string, err error) error {
	if stderrors.Is(err, errors.ErrInvalidParam) ||
		stderrors.Is(err, errors.ErrBookNotFound) ||
		stderrors.Is(err, errors.ErrChapterNotFound) {
		logger.Warn(ctx, msg, "error", err.Error(), "retry", false)
		return nil
	}
	logger.Error(ctx, msg, err)
	return err
}
