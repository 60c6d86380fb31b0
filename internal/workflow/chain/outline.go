package chain

import (
	"context"
	"fmt"
	"strings"

	wfmodel "bookgen-ai-api/internal/workflow/model"
	workflowport "bookgen-ai-api/internal/workflow/port"
	workflowprompt "bookgen-ai-api/internal/workflow/prompt"
)

type OutlineChain struct {
	jsonChain
}

func NewOutlineChain(gen workflowport.TextGenerator, opts wfmodel.GenerateOptions) *OutlineChain {
	return &OutlineChain{jsonChain{gen: gen, opts: opts}}
}

func (c *OutlineChain) Invoke(ctx context.Context, in *wfmodel.OutlineInput) (*wfmodel.GenerateResult, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.UserQuery) == "" {
		return nil, fmt.Errorf("user query is required")
	}
	if in.TotalChapters < 1 {
		return nil, fmt.Errorf("total_chapters must be >= 1")
	}

	return c.invoke(ctx, WorkflowOutline, workflowprompt.PromptOutlineV1, map[string]any{
		"user_query":     strings.TrimSpace(in.UserQuery),
		"total_chapters": in.TotalChapters,
	})
}
