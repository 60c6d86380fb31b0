package chain

import (
	"context"
	"fmt"
	"strings"

	wfmodel "bookgen-ai-api/internal/workflow/model"
	workflowport "bookgen-ai-api/internal/workflow/port"
	workflowprompt "bookgen-ai-api/internal/workflow/prompt"
)

type BookAnalysisChain struct {
	jsonChain
}

func NewBookAnalysisChain(gen workflowport.TextGenerator, opts wfmodel.GenerateOptions) *BookAnalysisChain {
	return &BookAnalysisChain{jsonChain{gen: gen, opts: opts}}
}

func (c *BookAnalysisChain) Invoke(ctx context.Context, in *wfmodel.BookAnalysisInput) (*wfmodel.GenerateResult, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.ChapterContext) == "" {
		return nil, fmt.Errorf("chapter context is required")
	}

	return c.invoke(ctx, WorkflowBookAnalysis, workflowprompt.PromptBookAnalysisV1, map[string]any{
		"book_title":       orDefault(in.BookTitle, "Untitled Book"),
		"book_description": orDefault(in.BookDescription, "(none)"),
		"chapter_context":  strings.TrimSpace(in.ChapterContext),
	})
}
