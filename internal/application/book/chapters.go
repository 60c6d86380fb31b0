package book

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
	llmctx "bookgen-ai-api/internal/domain/service"
	"bookgen-ai-api/internal/workflow/chain"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	wfnode "bookgen-ai-api/internal/workflow/node"
	workflowport "bookgen-ai-api/internal/workflow/port"
	"bookgen-ai-api/pkg/errors"
	"bookgen-ai-api/pkg/logger"
	"bookgen-ai-api/pkg/metrics"
	"bookgen-ai-api/pkg/tracer"
)

const (
	chaptersCompletedMessage = "All chapters generated successfully"
	fallbackChapterContent   = "[Chapter generation failed: the model returned no content]"
)

// ChapterRunReport 章节阶段的执行结果。
// Success 只反映循环是否跑完；逐章结果见 Succeeded / Skipped / Existing。
type ChapterRunReport struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	Succeeded []int `json:"succeeded"`
	Skipped   []int `json:"skipped"`
	// Existing 已存在同序号章节而未重新生成的序号
	Existing []int `json:"existing"`

	TokenUsed int `json:"token_used"`
}

// Complete 是否全部章节均已落库
func (r *ChapterRunReport) Complete() bool {
	return r.Success && len(r.Skipped) == 0
}

func newChapterRunReport() *ChapterRunReport {
	return &ChapterRunReport{Succeeded: []int{}, Skipped: []int{}, Existing: []int{}}
}

// ChapterStage 逐章顺序生成并落库
type ChapterStage struct {
	chain    *chain.ChapterChain
	chapters repository.ChapterRepository
	indexes  repository.ChapterIndexRepository
	pacer    Pacer
}

func NewChapterStage(
	gen workflowport.TextGenerator,
	opts wfmodel.GenerateOptions,
	chapters repository.ChapterRepository,
	indexes repository.ChapterIndexRepository,
	pacer Pacer,
) *ChapterStage {
	if pacer == nil {
		pacer = NoopPacer{}
	}
	return &ChapterStage{
		chain:    chain.NewChapterChain(gen, opts),
		chapters: chapters,
		indexes:  indexes,
		pacer:    pacer,
	}
}

// GenerateChapters 按 i = 1..totalChapters 严格顺序生成。
// 单章失败记入 Skipped 并继续；持久化错误、网关契约错误或等待被取消时中止，
// 已落库章节保留。
func (s *ChapterStage) GenerateChapters(ctx context.Context, specs []wfmodel.ChapterSpec, bookID string, totalChapters int) (report *ChapterRunReport, err error) {
	if strings.TrimSpace(bookID) == "" {
		return nil, errors.ErrInvalidParam.WithDetail("book id is required")
	}
	if totalChapters < 1 {
		return nil, errors.ErrInvalidParam.WithDetail("total chapters must be >= 1")
	}

	ctx = llmctx.WithBook(ctx, bookID)
	ctx = logger.WithContext(ctx, logger.BookIDKey, bookID)
	ctx, span := tracer.Start(ctx, "book.GenerateChapters")
	span.SetAttributes(
		attribute.String("book.id", bookID),
		attribute.Int("book.total_chapters", totalChapters),
		attribute.Int("book.specs", len(specs)),
	)
	defer tracer.End(span, &err)

	start := time.Now()
	report = newChapterRunReport()
	defer func() {
		status := "success"
		if err != nil || !report.Success {
			status = "error"
		}
		metrics.RecordStage(stageChapters, status, time.Since(start).Seconds())
	}()

	bySpec := make(map[int]wfmodel.ChapterSpec, len(specs))
	for _, spec := range specs {
		if _, dup := bySpec[spec.ChapterNumber]; !dup {
			bySpec[spec.ChapterNumber] = spec
		}
	}
	if len(specs) != totalChapters {
		logger.Warn(ctx, "chapter spec count differs from requested total",
			"specs", len(specs),
			"total_chapters", totalChapters,
		)
	}

	abort := func(i int, cause error) (*ChapterRunReport, error) {
		logger.Error(ctx, "chapter generation aborted", cause, "chapter", i)
		report.Success = false
		report.Error = cause.Error()
		return report, nil
	}

	for i := 1; i <= totalChapters; i++ {
		spec, ok := bySpec[i]
		if !ok {
			logger.Warn(ctx, "no spec for chapter, skipping", "chapter", i)
			metrics.ChaptersTotal.WithLabelValues("missing_spec").Inc()
			report.Skipped = append(report.Skipped, i)
			continue
		}

		existing, err := s.chapters.GetByBookAndOrder(ctx, bookID, i)
		if err != nil {
			return abort(i, err)
		}
		if existing != nil {
			logger.Info(ctx, "chapter already exists, skipping", "chapter", i, "chapter_id", existing.ID)
			report.Existing = append(report.Existing, i)
			continue
		}

		res, err := s.chain.Invoke(ctx, &wfmodel.ChapterGenerateInput{ChapterNumber: i, Spec: spec})
		if err != nil {
			return abort(i, err)
		}
		report.TokenUsed += res.TokenUsed

		if !res.Success {
			logger.Warn(ctx, "chapter generation failed, continuing",
				"chapter", i,
				"error", res.Error,
			)
			metrics.ChaptersTotal.WithLabelValues("failed").Inc()
			report.Skipped = append(report.Skipped, i)
		} else {
			if err := s.persist(ctx, bookID, i, spec, res.Data); err != nil {
				return abort(i, err)
			}
			report.Succeeded = append(report.Succeeded, i)
		}

		if i < totalChapters {
			if err := s.pacer.Wait(ctx); err != nil {
				return abort(i, err)
			}
		}
	}

	report.Success = true
	report.Message = chaptersCompletedMessage
	logger.Info(ctx, "chapter generation finished",
		"succeeded", len(report.Succeeded),
		"skipped", len(report.Skipped),
		"existing", len(report.Existing),
	)
	return report, nil
}

// persist 写入章节与种子索引，两者各自独立提交
func (s *ChapterStage) persist(ctx context.Context, bookID string, i int, spec wfmodel.ChapterSpec, data map[string]any) error {
	title := wfnode.StringOr(data, "title", fmt.Sprintf("Chapter %d", i))
	content := wfnode.StringOr(data, "content", fallbackChapterContent)

	ch := entity.NewChapter(bookID, i, title, content)
	if err := s.chapters.Create(ctx, ch); err != nil {
		return fmt.Errorf("persist chapter %d: %w", i, err)
	}

	seed := seedIndex(ch, spec)
	if err := s.indexes.Upsert(ctx, seed); err != nil {
		return fmt.Errorf("persist seed index for chapter %d: %w", i, err)
	}

	metrics.ChaptersTotal.WithLabelValues("succeeded").Inc()
	metrics.ChapterWordCount.Observe(float64(ch.WordCount))
	logger.Info(ctx, "chapter persisted",
		"chapter", i,
		"chapter_id", ch.ID,
		"word_count", ch.WordCount,
	)
	return nil
}

// seedIndex 由大纲规格生成的初始索引
func seedIndex(ch *entity.Chapter, spec wfmodel.ChapterSpec) *entity.ChapterIndex {
	return &entity.ChapterIndex{
		ChapterID:       ch.ID,
		BookID:          ch.BookID,
		Summary:         spec.ObjectivesAndOutcomes,
		KeyEvents:       nonNil(spec.KeyEvents),
		Characters:      nonNil(spec.MainCharacters),
		Mood:            spec.MoodAndTone,
		Cliffhanger:     false,
		WordCount:       ch.WordCount,
		AnalysisVersion: entity.ChapterIndexVersionSeed,
		LastAnalyzed:    time.Now().UTC(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
