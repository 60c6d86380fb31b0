package chain

import (
	"context"
	"fmt"
	"strings"

	wfmodel "bookgen-ai-api/internal/workflow/model"
	wfnode "bookgen-ai-api/internal/workflow/node"
	workflowport "bookgen-ai-api/internal/workflow/port"
	workflowprompt "bookgen-ai-api/internal/workflow/prompt"
)

// maxAnalysisContentRunes 章节正文写入分析提示词的上限
const maxAnalysisContentRunes = 60000

type ChapterAnalysisChain struct {
	jsonChain
}

func NewChapterAnalysisChain(gen workflowport.TextGenerator, opts wfmodel.GenerateOptions) *ChapterAnalysisChain {
	return &ChapterAnalysisChain{jsonChain{gen: gen, opts: opts}}
}

func (c *ChapterAnalysisChain) Invoke(ctx context.Context, in *wfmodel.ChapterAnalysisInput) (*wfmodel.GenerateResult, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("chapter content is required")
	}

	return c.invoke(ctx, WorkflowChapterAnalysis, workflowprompt.PromptChapterAnalysisV1, map[string]any{
		"book_context":   buildBookContext(in),
		"chapter_number": in.ChapterNumber,
		"chapter_title":  orDefault(in.ChapterTitle, fmt.Sprintf("Chapter %d", in.ChapterNumber)),
		"content":        wfnode.TruncateByRunes(strings.TrimSpace(in.Content), maxAnalysisContentRunes),
	})
}

func buildBookContext(in *wfmodel.ChapterAnalysisInput) string {
	var lines []string
	if s := strings.TrimSpace(in.BookTitle); s != "" {
		lines = append(lines, "Book Title: "+s)
	}
	if s := strings.TrimSpace(in.BookSummary); s != "" {
		lines = append(lines, "Book Summary: "+s)
	}
	if s := strings.TrimSpace(in.BookGenre); s != "" {
		lines = append(lines, "Genre: "+s)
	}
	if themes := wfnode.JoinOr(in.BookThemes, ", ", ""); themes != "" {
		lines = append(lines, "Themes: "+themes)
	}
	return strings.Join(lines, "\n")
}
