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
	// DefaultBookAnalysisMinWords 整书分析的默认字数门槛
	DefaultBookAnalysisMinWords = 50

	pendingBookSummary = "Analysis pending: not enough analyzed chapter content yet"
	pendingReason      = "insufficient analyzed content for book analysis"

	degradedGenre = "fiction"
	degradedTone  = "neutral"
)

// BookStats 整书统计
type BookStats struct {
	TotalChapters    int `json:"total_chapters"`
	AnalyzedChapters int `json:"analyzed_chapters"`
	// DeepAnalyzedChapters 其中已经过章节分析（非种子）的索引数
	DeepAnalyzedChapters     int `json:"deep_analyzed_chapters"`
	TotalWordCount           int `json:"total_word_count"`
	AverageWordCount         int `json:"average_word_count"`
	ChaptersWithCliffhangers int `json:"chapters_with_cliffhangers"`
}

// BookAnalysis 整书分析结果
type BookAnalysis struct {
	*entity.BookIndex
	AIAnalysis wfmodel.AIAnalysis `json:"ai_analysis"`
	BookStats  BookStats          `json:"book_stats"`
}

// analyzedChapter 拥有章节索引的章节
type analyzedChapter struct {
	chapter *entity.Chapter
	index   *entity.ChapterIndex
}

// BookAnalysisStage 聚合章节索引生成整书索引
type BookAnalysisStage struct {
	chain       *chain.BookAnalysisChain
	books       repository.BookRepository
	chapters    repository.ChapterRepository
	indexes     repository.ChapterIndexRepository
	bookIndexes repository.BookIndexRepository
	minWords    int
}

func NewBookAnalysisStage(
	gen workflowport.TextGenerator,
	opts wfmodel.GenerateOptions,
	repos Repositories,
	minWords int,
) *BookAnalysisStage {
	if minWords <= 0 {
		minWords = DefaultBookAnalysisMinWords
	}
	return &BookAnalysisStage{
		chain:       chain.NewBookAnalysisChain(gen, opts),
		books:       repos.Books,
		chapters:    repos.Chapters,
		indexes:     repos.ChapterIndexes,
		bookIndexes: repos.BookIndexes,
		minWords:    minWords,
	}
}

// AnalyzeBook 门槛未满足时写入 pending 占位且不调用网关；
// 门槛满足后无论成功与否都会写入索引（complete 或 degraded）。
func (s *BookAnalysisStage) AnalyzeBook(ctx context.Context, bookID string) (out *BookAnalysis, err error) {
	if strings.TrimSpace(bookID) == "" {
		return nil, errors.ErrInvalidParam.WithDetail("book id is required")
	}

	ctx = llmctx.WithBook(ctx, bookID)
	ctx = logger.WithContext(ctx, logger.BookIDKey, bookID)
	ctx, span := tracer.Start(ctx, "book.AnalyzeBook")
	span.SetAttributes(attribute.String("book.id", bookID))
	defer tracer.End(span, &err)

	start := time.Now()
	defer func() {
		status := "error"
		if err == nil {
			status = string(out.Status)
		}
		metrics.RecordStage(stageBookAnalysis, status, time.Since(start).Seconds())
	}()

	b, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if b == nil {
		return nil, errors.ErrBookNotFound.WithDetail(bookID)
	}

	analyzed, stats, err := s.collect(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if stats.AnalyzedChapters == 0 || stats.TotalWordCount < s.minWords {
		logger.Info(ctx, "book analysis gated off",
			"analyzed_chapters", stats.AnalyzedChapters,
			"total_words", stats.TotalWordCount,
			"min_words", s.minWords,
		)
		idx := pendingIndex(bookID, stats.TotalWordCount)
		if err := s.save(ctx, idx); err != nil {
			return nil, err
		}
		return &BookAnalysis{
			BookIndex:  idx,
			AIAnalysis: wfmodel.AIAnalysis{Success: false, Error: pendingReason},
			BookStats:  stats,
		}, nil
	}

	res, err := s.chain.Invoke(ctx, &wfmodel.BookAnalysisInput{
		BookTitle:       b.Title,
		BookDescription: b.Description,
		ChapterContext:  buildChapterContext(analyzed),
	})
	if err != nil {
		return nil, err
	}

	var idx *entity.BookIndex
	ai := wfmodel.AnalysisFrom(res)
	switch {
	case !res.Success:
		idx = degradedIndex(bookID, stats.TotalWordCount, res.Error)
	case len(res.Data) == 0:
		ai.Success = false
		ai.Error = "model output could not be parsed as JSON"
		idx = degradedIndex(bookID, stats.TotalWordCount, ai.Error)
	default:
		idx = completeIndex(bookID, stats.TotalWordCount, res.Data, b.Genre)
	}

	if err := s.save(ctx, idx); err != nil {
		return nil, err
	}
	if idx.Status == entity.BookIndexStatusDegraded {
		logger.Warn(ctx, "book analysis degraded", "error", ai.Error)
	} else {
		logger.Info(ctx, "book analyzed",
			"genre", idx.Genre,
			"tone", idx.Tone,
			"themes", len(idx.Themes),
			"tokens", res.TokenUsed,
		)
	}

	return &BookAnalysis{BookIndex: idx, AIAnalysis: ai, BookStats: stats}, nil
}

// collect 按章节顺序收集拥有索引的章节，种子索引同样计入
func (s *BookAnalysisStage) collect(ctx context.Context, bookID string) ([]analyzedChapter, BookStats, error) {
	var stats BookStats

	chapters, err := s.chapters.ListByBook(ctx, bookID)
	if err != nil {
		return nil, stats, errors.ErrDatabaseError.WithError(err)
	}
	indexes, err := s.indexes.ListByBook(ctx, bookID)
	if err != nil {
		return nil, stats, errors.ErrDatabaseError.WithError(err)
	}

	byChapter := make(map[string]*entity.ChapterIndex, len(indexes))
	for _, idx := range indexes {
		byChapter[idx.ChapterID] = idx
	}

	stats.TotalChapters = len(chapters)
	analyzed := make([]analyzedChapter, 0, len(chapters))
	for _, ch := range chapters {
		idx, ok := byChapter[ch.ID]
		if !ok {
			continue
		}
		analyzed = append(analyzed, analyzedChapter{chapter: ch, index: idx})
		if !idx.IsSeed() {
			stats.DeepAnalyzedChapters++
		}
		stats.TotalWordCount += idx.WordCount
		if idx.Cliffhanger {
			stats.ChaptersWithCliffhangers++
		}
	}
	stats.AnalyzedChapters = len(analyzed)
	if stats.AnalyzedChapters > 0 {
		stats.AverageWordCount = stats.TotalWordCount / stats.AnalyzedChapters
	}
	return analyzed, stats, nil
}

func (s *BookAnalysisStage) save(ctx context.Context, idx *entity.BookIndex) error {
	if err := s.bookIndexes.Upsert(ctx, idx); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	metrics.BookIndexTotal.WithLabelValues(string(idx.Status)).Inc()
	return nil
}

// buildChapterContext 将各章索引拼接为整书分析的上下文
func buildChapterContext(analyzed []analyzedChapter) string {
	var sb strings.Builder
	for i, a := range analyzed {
		if i > 0 {
			sb.WriteString("\n")
		}
		idx := a.index
		fmt.Fprintf(&sb, "Chapter %d: %s\n", a.chapter.OrderIndex, a.chapter.Title)
		fmt.Fprintf(&sb, "Summary: %s\n", idx.Summary)
		fmt.Fprintf(&sb, "Key Events: %s\n", wfnode.JoinOr(idx.KeyEvents, "; ", "none"))
		fmt.Fprintf(&sb, "Characters: %s\n", wfnode.JoinOr(idx.Characters, ", ", "none"))
		fmt.Fprintf(&sb, "Mood: %s\n", idx.Mood)
		fmt.Fprintf(&sb, "Cliffhanger: %t\n", idx.Cliffhanger)
		if idx.ThematicAnalysis != "" {
			fmt.Fprintf(&sb, "Themes: %s\n", idx.ThematicAnalysis)
		}
		fmt.Fprintf(&sb, "Word Count: %d\n", idx.WordCount)
	}
	return sb.String()
}

func pendingIndex(bookID string, words int) *entity.BookIndex {
	return &entity.BookIndex{
		BookID:          bookID,
		Summary:         pendingBookSummary,
		Themes:          []string{},
		Characters:      []string{},
		PlotPoints:      []string{},
		Cliffhangers:    []string{},
		WordCount:       words,
		AnalysisVersion: entity.BookIndexVersionPending,
		Status:          entity.BookIndexStatusPending,
		LastAnalyzed:    time.Now().UTC(),
	}
}

func degradedIndex(bookID string, words int, reason string) *entity.BookIndex {
	return &entity.BookIndex{
		BookID:          bookID,
		Summary:         fmt.Sprintf("[Book analysis failed: %s]", orDefault(reason, "unknown error")),
		Themes:          []string{},
		Characters:      []string{},
		PlotPoints:      []string{},
		Tone:            degradedTone,
		Genre:           degradedGenre,
		Cliffhangers:    []string{},
		WordCount:       words,
		AnalysisVersion: entity.BookIndexVersionCurrent,
		Status:          entity.BookIndexStatusDegraded,
		LastAnalyzed:    time.Now().UTC(),
	}
}

func completeIndex(bookID string, words int, data map[string]any, bookGenre string) *entity.BookIndex {
	return &entity.BookIndex{
		BookID:            bookID,
		Summary:           wfnode.StringOr(data, "summary", defaultChapterSummary),
		Themes:            wfnode.StringSlice(data, "themes"),
		Characters:        wfnode.StringSlice(data, "characters"),
		PlotPoints:        firstSlice(data, "plotPoints", "plot_points"),
		Tone:              wfnode.StringOr(data, "tone", degradedTone),
		Genre:             wfnode.StringOr(data, "genre", orDefault(bookGenre, degradedGenre)),
		StructureAnalysis: firstString(data, "structureAnalysis", "structure_analysis"),
		Cliffhangers:      firstSlice(data, "cliffhanger", "cliffhangers"),
		WordCount:         words,
		AnalysisVersion:   entity.BookIndexVersionCurrent,
		Status:            entity.BookIndexStatusComplete,
		LastAnalyzed:      time.Now().UTC(),
	}
}
