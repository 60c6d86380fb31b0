package chain

import (
	"context"
	"fmt"
	"strings"

	llmctx "bookgen-ai-api/internal/domain/service"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	workflowport "bookgen-ai-api/internal/workflow/port"
	workflowprompt "bookgen-ai-api/internal/workflow/prompt"
)

// 工作流名称，用于指标、用量流水与日志
const (
	WorkflowOutline         = "book_outline"
	WorkflowChapter         = "chapter_generate"
	WorkflowChapterAnalysis = "chapter_analyze"
	WorkflowBookAnalysis    = "book_analyze"
)

var promptRegistry = workflowprompt.NewRegistry()

// jsonChain 渲染提示词并以 JSON 模式调用文本生成网关
type jsonChain struct {
	gen  workflowport.TextGenerator
	opts wfmodel.GenerateOptions
}

func (c *jsonChain) invoke(ctx context.Context, workflow string, id workflowprompt.PromptID, vars map[string]any) (*wfmodel.GenerateResult, error) {
	if c == nil || c.gen == nil {
		return nil, fmt.Errorf("text generator not configured")
	}

	ctx = llmctx.WithWorkflow(ctx, workflow)
	prompt, err := promptRegistry.Render(ctx, id, vars)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("empty prompt for %s", id)
	}

	opts := c.opts
	opts.ForceJSON = true
	res, err := c.gen.Generate(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("empty llm result")
	}
	return res, nil
}
