package book

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"bookgen-ai-api/internal/config"
	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	workflowport "bookgen-ai-api/internal/workflow/port"
	"bookgen-ai-api/pkg/errors"
	"bookgen-ai-api/pkg/logger"
)

// 阶段名称，用于指标
const (
	stageOutline         = "outline"
	stageChapters        = "chapters"
	stageChapterAnalysis = "chapter_analysis"
	stageBookAnalysis    = "book_analysis"
)

// Repositories 流水线依赖的仓储
type Repositories struct {
	Books          repository.BookRepository
	Chapters       repository.ChapterRepository
	ChapterIndexes repository.ChapterIndexRepository
	BookIndexes    repository.BookIndexRepository
}

// Options 流水线策略
type Options struct {
	OutlineAttempts      int
	OutlineRetryDelay    time.Duration
	BookAnalysisMinWords int
	BatchAnalysisDelay   time.Duration
	Generate             wfmodel.GenerateOptions
}

// OptionsFromConfig 由配置构造流水线策略
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	opts := Options{
		OutlineAttempts:      cfg.OutlineAttempts,
		OutlineRetryDelay:    cfg.OutlineRetryDelay,
		BookAnalysisMinWords: cfg.BookAnalysisMinWords,
		BatchAnalysisDelay:   cfg.BatchAnalysisDelay,
		Generate:             wfmodel.GenerateOptions{MaxOutputTokens: cfg.MaxOutputTokens},
	}
	if cfg.Temperature > 0 {
		t := float32(cfg.Temperature)
		opts.Generate.Temperature = &t
	}
	return opts
}

// Pipeline 书籍生成与分析流水线编排器。
// 单次运行内严格顺序执行；不同书籍的运行之间只共享持久化层与节流器。
type Pipeline struct {
	repos Repositories
	opts  Options

	outline         *OutlineStage
	chapters        *ChapterStage
	chapterAnalysis *ChapterAnalysisStage
	bookAnalysis    *BookAnalysisStage
	batchPacer      Pacer
}

func NewPipeline(gen workflowport.TextGenerator, pacer Pacer, repos Repositories, opts Options) *Pipeline {
	if opts.OutlineAttempts < 1 {
		opts.OutlineAttempts = 1
	}
	var batchPacer Pacer = NoopPacer{}
	if opts.BatchAnalysisDelay > 0 {
		batchPacer = NewDelayPacer(opts.BatchAnalysisDelay)
	}
	return &Pipeline{
		repos:           repos,
		opts:            opts,
		outline:         NewOutlineStage(gen, opts.Generate),
		chapters:        NewChapterStage(gen, opts.Generate, repos.Chapters, repos.ChapterIndexes, pacer),
		chapterAnalysis: NewChapterAnalysisStage(gen, opts.Generate, repos),
		bookAnalysis:    NewBookAnalysisStage(gen, opts.Generate, repos, opts.BookAnalysisMinWords),
		batchPacer:      batchPacer,
	}
}

// CreateOutline 生成大纲；仅对网关报告的失败按配置重试
func (p *Pipeline) CreateOutline(ctx context.Context, userQuery string, totalChapters int) (*wfmodel.BookOutline, error) {
	var outline *wfmodel.BookOutline
	err := retry.Do(
		func() error {
			o, err := p.outline.CreateOutline(ctx, userQuery, totalChapters)
			if err != nil {
				return err
			}
			outline = o
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(p.opts.OutlineAttempts)),
		retry.Delay(p.opts.OutlineRetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return stderrors.Is(err, errors.ErrOutlineFailed)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn(ctx, "retrying outline generation", "attempt", n+1, "error", err.Error())
		}),
	)
	if err != nil {
		return nil, err
	}
	return outline, nil
}

// GenerateChapters 顺序生成章节，见 ChapterStage
func (p *Pipeline) GenerateChapters(ctx context.Context, specs []wfmodel.ChapterSpec, bookID string, totalChapters int) (*ChapterRunReport, error) {
	return p.chapters.GenerateChapters(ctx, specs, bookID, totalChapters)
}

// AnalyzeChapter 章节深度分析
func (p *Pipeline) AnalyzeChapter(ctx context.Context, chapterID string) (*ChapterAnalysis, error) {
	return p.chapterAnalysis.AnalyzeChapter(ctx, chapterID)
}

// AnalyzeBook 整书分析
func (p *Pipeline) AnalyzeBook(ctx context.Context, bookID string) (*BookAnalysis, error) {
	return p.bookAnalysis.AnalyzeBook(ctx, bookID)
}

// GenerationRequest 一次完整生成的输入
type GenerationRequest struct {
	UserQuery     string `json:"user_query"`
	TotalChapters int    `json:"total_chapters"`
	AuthorID      string `json:"author_id,omitempty"`
	Genre         string `json:"genre,omitempty"`
}

// GenerationResult 一次完整生成的结果
type GenerationResult struct {
	Book    *entity.Book         `json:"book"`
	Outline *wfmodel.BookOutline `json:"outline"`
	Report  *ChapterRunReport    `json:"report"`
}

// CreateBook 大纲 → 创建书籍 → 逐章生成，并按结果更新书籍状态
func (p *Pipeline) CreateBook(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	outline, err := p.CreateOutline(ctx, req.UserQuery, req.TotalChapters)
	if err != nil {
		return nil, err
	}

	b := entity.NewBook(req.AuthorID, outline.Title, outline.Description, req.TotalChapters)
	b.Genre = strings.TrimSpace(req.Genre)
	if err := p.repos.Books.Create(ctx, b); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	ctx = logger.WithContext(ctx, logger.BookIDKey, b.ID)
	logger.Info(ctx, "book created", "title", b.Title, "total_chapters", b.TotalChapters)

	if err := p.setStatus(ctx, b, entity.BookStatusGenerating); err != nil {
		return nil, err
	}

	report, err := p.chapters.GenerateChapters(ctx, outline.Chapters, b.ID, req.TotalChapters)
	if err != nil {
		p.markFailed(ctx, b)
		return nil, err
	}

	status := entity.BookStatusGenerated
	switch {
	case !report.Success:
		status = entity.BookStatusFailed
	case len(report.Skipped) > 0:
		status = entity.BookStatusPartial
	}
	if err := p.setStatus(ctx, b, status); err != nil {
		return nil, err
	}

	return &GenerationResult{Book: b, Outline: outline, Report: report}, nil
}

// markFailed 已有错误要返回时使用，状态写入失败只记录日志
func (p *Pipeline) markFailed(ctx context.Context, b *entity.Book) {
	if err := p.setStatus(ctx, b, entity.BookStatusFailed); err != nil {
		logger.Error(ctx, "failed to mark book as failed", err, "status", b.Status)
	}
}

func (p *Pipeline) setStatus(ctx context.Context, b *entity.Book, status entity.BookStatus) error {
	if err := p.repos.Books.UpdateStatus(ctx, b.ID, status); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	b.Status = status
	return nil
}

// BatchAnalysisResult 批量章节分析结果
type BatchAnalysisResult struct {
	BookID   string             `json:"book_id"`
	Chapters []*ChapterAnalysis `json:"chapters"`
	Failed   []string           `json:"failed"`
	Book     *BookAnalysis      `json:"book,omitempty"`
}

// AnalyzeBookChapters 按顺序分析书籍的全部章节，可选地随后进行整书分析。
// 单章出错记入 Failed 并继续。
func (p *Pipeline) AnalyzeBookChapters(ctx context.Context, bookID string, analyzeBook bool) (*BatchAnalysisResult, error) {
	if strings.TrimSpace(bookID) == "" {
		return nil, errors.ErrInvalidParam.WithDetail("book id is required")
	}
	b, err := p.repos.Books.GetByID(ctx, bookID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if b == nil {
		return nil, errors.ErrBookNotFound.WithDetail(bookID)
	}

	chapters, err := p.repos.Chapters.ListByBook(ctx, bookID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	out := &BatchAnalysisResult{BookID: bookID, Chapters: []*ChapterAnalysis{}, Failed: []string{}}
	for i, ch := range chapters {
		res, err := p.chapterAnalysis.AnalyzeChapter(ctx, ch.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Error(ctx, "chapter analysis failed", err, "chapter_id", ch.ID)
			out.Failed = append(out.Failed, ch.ID)
		} else {
			out.Chapters = append(out.Chapters, res)
		}
		if i < len(chapters)-1 {
			if err := p.batchPacer.Wait(ctx); err != nil {
				return nil, err
			}
		}
	}

	if analyzeBook {
		ba, err := p.bookAnalysis.AnalyzeBook(ctx, bookID)
		if err != nil {
			return nil, err
		}
		out.Book = ba
	}
	return out, nil
}
