package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	wfmodel "bookgen-ai-api/internal/workflow/model"
	"bookgen-ai-api/pkg/logger"
)

// EinoGateway 通过 Eino ChatModel 访问 OpenAI 兼容提供商
type EinoGateway struct {
	factory  ChatModelSource
	provider string
	model    string
}

func NewEinoGateway(factory ChatModelSource, provider, modelName string) *EinoGateway {
	return &EinoGateway{factory: factory, provider: provider, model: modelName}
}

// Generate 实现 port.TextGenerator
func (g *EinoGateway) Generate(ctx context.Context, prompt string, opts wfmodel.GenerateOptions) (*wfmodel.GenerateResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	start := time.Now()
	res := &wfmodel.GenerateResult{Provider: g.provider, Model: g.model}
	defer func() { res.ProcessingTimeMs = time.Since(start).Milliseconds() }()

	chatModel, err := g.factory.Get(ctx, g.provider)
	if err != nil {
		return failResult(res, err, opts), nil
	}

	msgs := []*schema.Message{schema.UserMessage(prompt)}
	outMsg, err := chatModel.Generate(ctx, msgs, buildModelOptions(opts, opts.ForceJSON)...)
	if err != nil && opts.ForceJSON && jsonModeRejected(err) {
		logger.Warn(ctx, "llm json mode not supported, fallback to prompt-only",
			"provider", g.provider,
			"model", g.model,
			"error", err.Error(),
		)
		outMsg, err = chatModel.Generate(ctx, msgs, buildModelOptions(opts, false)...)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return failResult(res, fmt.Errorf("%s generate: %w", g.provider, err), opts), nil
	}
	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		return failResult(res, fmt.Errorf("%s returned no content", g.provider), opts), nil
	}

	reported := 0
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		reported = outMsg.ResponseMeta.Usage.TotalTokens
	}
	return completeResult(res, prompt, strings.TrimSpace(outMsg.Content), reported, opts), nil
}

func buildModelOptions(opts wfmodel.GenerateOptions, jsonMode bool) []model.Option {
	out := make([]model.Option, 0, 4)
	if opts.Temperature != nil {
		out = append(out, model.WithTemperature(*opts.Temperature))
	}
	if opts.TopP != nil {
		out = append(out, model.WithTopP(*opts.TopP))
	}
	if opts.MaxOutputTokens > 0 {
		out = append(out, model.WithMaxTokens(opts.MaxOutputTokens))
	}
	if jsonMode {
		out = append(out, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}))
	}
	return out
}

// jsonModeMarkers 提供商拒绝 response_format 时错误信息中出现的片段
var jsonModeMarkers = []string{
	"response_format",
	"response_schema",
	"json_object",
	"json_schema",
	"failed to parse",
}

// jsonModeRejected 提供商不支持 JSON 模式时，调用方退回到只靠提示词约束输出
func jsonModeRejected(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range jsonModeMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return strings.Contains(msg, "response") &&
		(strings.Contains(msg, "unknown parameter") || strings.Contains(msg, "invalid"))
}
