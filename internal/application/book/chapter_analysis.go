package book

import (
	"context"
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
	defaultChapterSummary = "Summary not available"
	defaultChapterMood    = "neutral"
)

// ChapterAnalysis 章节深度分析结果
type ChapterAnalysis struct {
	*entity.ChapterIndex
	AIAnalysis wfmodel.AIAnalysis `json:"ai_analysis"`
}

// ChapterAnalysisStage 生成并覆盖章节索引
type ChapterAnalysisStage struct {
	chain       *chain.ChapterAnalysisChain
	books       repository.BookRepository
	chapters    repository.ChapterRepository
	indexes     repository.ChapterIndexRepository
	bookIndexes repository.BookIndexRepository
}

func NewChapterAnalysisStage(
	gen workflowport.TextGenerator,
	opts wfmodel.GenerateOptions,
	repos Repositories,
) *ChapterAnalysisStage {
	return &ChapterAnalysisStage{
		chain:       chain.NewChapterAnalysisChain(gen, opts),
		books:       repos.Books,
		chapters:    repos.Chapters,
		indexes:     repos.ChapterIndexes,
		bookIndexes: repos.BookIndexes,
	}
}

// AnalyzeChapter 总是返回可用索引：网关失败或抽取失败时逐字段兜底
func (s *ChapterAnalysisStage) AnalyzeChapter(ctx context.Context, chapterID string) (out *ChapterAnalysis, err error) {
	if strings.TrimSpace(chapterID) == "" {
		return nil, errors.ErrInvalidParam.WithDetail("chapter id is required")
	}

	ctx = logger.WithContext(ctx, logger.ChapterIDKey, chapterID)
	ctx, span := tracer.Start(ctx, "book.AnalyzeChapter")
	span.SetAttributes(attribute.String("chapter.id", chapterID))
	defer tracer.End(span, &err)

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		} else if !out.AIAnalysis.Success {
			status = "degraded"
		}
		metrics.RecordStage(stageChapterAnalysis, status, time.Since(start).Seconds())
	}()

	ch, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if ch == nil {
		return nil, errors.ErrChapterNotFound.WithDetail(chapterID)
	}
	ctx = llmctx.WithBook(ctx, ch.BookID)

	in, err := s.buildInput(ctx, ch)
	if err != nil {
		return nil, err
	}

	var res *wfmodel.GenerateResult
	if strings.TrimSpace(ch.Content) == "" {
		res = &wfmodel.GenerateResult{Data: map[string]any{}, JSON: true, Error: "chapter has no content"}
	} else {
		res, err = s.chain.Invoke(ctx, in)
		if err != nil {
			return nil, err
		}
	}

	previous, err := s.indexes.GetByChapter(ctx, chapterID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	idx := buildChapterIndex(ch, res, previous)
	if err := s.indexes.Upsert(ctx, idx); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if !res.Success {
		logger.Warn(ctx, "chapter analysis degraded", "error", res.Error)
	} else {
		logger.Info(ctx, "chapter analyzed",
			"mood", idx.Mood,
			"cliffhanger", idx.Cliffhanger,
			"tokens", res.TokenUsed,
		)
	}

	return &ChapterAnalysis{ChapterIndex: idx, AIAnalysis: wfmodel.AnalysisFrom(res)}, nil
}

// buildInput 组装分析输入，附带书籍已有的摘要、类型与主题作为提示
func (s *ChapterAnalysisStage) buildInput(ctx context.Context, ch *entity.Chapter) (*wfmodel.ChapterAnalysisInput, error) {
	in := &wfmodel.ChapterAnalysisInput{
		ChapterNumber: ch.OrderIndex,
		ChapterTitle:  ch.Title,
		Content:       ch.Content,
	}

	b, err := s.books.GetByID(ctx, ch.BookID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if b != nil {
		in.BookTitle = b.Title
		in.BookGenre = b.Genre
	}

	bi, err := s.bookIndexes.GetByBook(ctx, ch.BookID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if bi != nil && bi.Status == entity.BookIndexStatusComplete {
		in.BookSummary = bi.Summary
		in.BookThemes = bi.Themes
		if bi.Genre != "" {
			in.BookGenre = bi.Genre
		}
	}
	return in, nil
}

// buildChapterIndex 按字段读取分析结果；网关失败时沿用已有索引的字段
func buildChapterIndex(ch *entity.Chapter, res *wfmodel.GenerateResult, previous *entity.ChapterIndex) *entity.ChapterIndex {
	idx := &entity.ChapterIndex{
		ChapterID:       ch.ID,
		BookID:          ch.BookID,
		Summary:         defaultChapterSummary,
		KeyEvents:       []string{},
		Characters:      []string{},
		Mood:            defaultChapterMood,
		WordCount:       entity.CountWords(ch.Content),
		AnalysisVersion: entity.ChapterIndexVersionAnalyzed,
		LastAnalyzed:    time.Now().UTC(),
	}

	if !res.Success && previous != nil {
		idx.Summary = orDefault(previous.Summary, defaultChapterSummary)
		idx.KeyEvents = nonNil(previous.KeyEvents)
		idx.Characters = nonNil(previous.Characters)
		idx.Mood = orDefault(previous.Mood, defaultChapterMood)
		idx.Cliffhanger = previous.Cliffhanger
		idx.ThematicAnalysis = previous.ThematicAnalysis
		idx.AnalysisVersion = previous.AnalysisVersion
		return idx
	}

	data := res.Data
	idx.Summary = wfnode.StringOr(data, "summary", defaultChapterSummary)
	idx.KeyEvents = firstSlice(data, "keyEvents", "key_events")
	idx.Characters = wfnode.StringSlice(data, "characters")
	idx.Mood = wfnode.StringOr(data, "mood", defaultChapterMood)
	idx.Cliffhanger = wfnode.Bool(data, "cliffhanger")
	idx.ThematicAnalysis = firstString(data, "thematicAnalysis", "thematic_analysis")
	return idx
}

func firstSlice(data map[string]any, keys ...string) []string {
	for _, k := range keys {
		if v := wfnode.StringSlice(data, k); len(v) > 0 {
			return v
		}
	}
	return []string{}
}

func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := wfnode.String(data, k); ok {
			return s
		}
	}
	return ""
}

func orDefault(s, def string) string {
	if v := strings.TrimSpace(s); v != "" {
		return v
	}
	return def
}
