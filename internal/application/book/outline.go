// Package book 实现书籍生成与分析流水线
package book

import (
	"context"
	"strings"
	"time"

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
	defaultBookTitle       = "Untitled Book"
	defaultBookDescription = "A generated book"
)

// OutlineStage 由用户请求生成书名、简介与逐章规格
type OutlineStage struct {
	chain *chain.OutlineChain
}

func NewOutlineStage(gen workflowport.TextGenerator, opts wfmodel.GenerateOptions) *OutlineStage {
	return &OutlineStage{chain: chain.NewOutlineChain(gen, opts)}
}

// CreateOutline 单次调用网关，不做重试；失败以 ErrOutlineFailed 返回
func (s *OutlineStage) CreateOutline(ctx context.Context, userQuery string, totalChapters int) (outline *wfmodel.BookOutline, err error) {
	if strings.TrimSpace(userQuery) == "" {
		return nil, errors.ErrInvalidParam.WithDetail("user query is required")
	}
	if totalChapters < 1 {
		return nil, errors.ErrInvalidParam.WithDetail("total chapters must be >= 1")
	}

	ctx, span := tracer.Start(ctx, "book.CreateOutline")
	defer tracer.End(span, &err)

	start := time.Now()
	status := "success"
	defer func() {
		if err != nil {
			status = "error"
		}
		metrics.RecordStage(stageOutline, status, time.Since(start).Seconds())
	}()

	res, err := s.chain.Invoke(ctx, &wfmodel.OutlineInput{UserQuery: userQuery, TotalChapters: totalChapters})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		logger.Warn(ctx, "outline generation failed", "error", res.Error)
		return nil, errors.ErrOutlineFailed.WithDetail(res.Error)
	}

	outline = parseOutline(res.Data)
	outline.TokenUsed = res.TokenUsed
	outline.ProcessingTimeMs = res.ProcessingTimeMs
	outline.Model = res.Model

	if n := len(outline.Chapters); n != totalChapters {
		logger.Warn(ctx, "outline chapter count mismatch",
			"requested", totalChapters,
			"returned", n,
		)
	}
	logger.Info(ctx, "outline generated",
		"title", outline.Title,
		"chapters", len(outline.Chapters),
		"tokens", outline.TokenUsed,
	)
	return outline, nil
}

// parseOutline 将模型输出转换为大纲；章节号按位置重新分配
func parseOutline(data map[string]any) *wfmodel.BookOutline {
	out := &wfmodel.BookOutline{
		Title:       wfnode.StringOr(data, "title", defaultBookTitle),
		Description: wfnode.StringOr(data, "description", defaultBookDescription),
	}

	items := wfnode.Objects(data, "summary")
	out.Chapters = make([]wfmodel.ChapterSpec, 0, len(items))
	for i, item := range items {
		spec := wfmodel.ChapterSpec{
			ChapterNumber:         i + 1,
			Title:                 wfnode.StringOr(item, "chapter_title", ""),
			MainCharacters:        wfnode.StringSlice(item, "main_characters"),
			KeyEvents:             wfnode.StringSlice(item, "key_events"),
			ImportantDialogue:     wfnode.StringSlice(item, "important_dialogue"),
			ObjectivesAndOutcomes: wfnode.StringOr(item, "objectives_and_outcomes", ""),
			TransitionToNext:      wfnode.StringOr(item, "transition_to_next", ""),
			MoodAndTone:           wfnode.StringOr(item, "mood_and_tone", ""),
		}
		if n, ok := wfnode.Int(item, "chapter_number"); ok {
			spec.ModelChapterNumber = n
		}
		out.Chapters = append(out.Chapters, spec)
	}
	return out
}
