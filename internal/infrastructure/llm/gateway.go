// Package llm 提供文本生成网关的提供商实现
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"bookgen-ai-api/internal/config"
	"bookgen-ai-api/internal/domain/service"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	wfnode "bookgen-ai-api/internal/workflow/node"
	workflowport "bookgen-ai-api/internal/workflow/port"
)

// 提供商类型
const (
	KindGemini = "gemini"
	KindOpenAI = "openai"
)

// ErrEmptyPrompt 提示词为空（契约错误）
var ErrEmptyPrompt = errors.New("prompt must not be empty")

func kindOf(p config.ProviderConfig) string {
	k := strings.ToLower(strings.TrimSpace(p.Kind))
	if k == "" {
		return KindOpenAI
	}
	return k
}

// NewTextGenerator 按默认提供商构造文本生成网关，并包上指标、追踪与用量记录
func NewTextGenerator(ctx context.Context, cfg *config.Config, recorder service.LLMUsageRecorder) (workflowport.TextGenerator, error) {
	name := cfg.LLM.DefaultProvider
	providerCfg, ok := cfg.LLM.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	var inner workflowport.TextGenerator
	switch kindOf(providerCfg) {
	case KindGemini:
		g, err := NewGeminiGateway(ctx, providerCfg)
		if err != nil {
			return nil, err
		}
		inner = g
	case KindOpenAI:
		inner = NewEinoGateway(NewEinoModels(cfg.LLM.Providers), name, providerCfg.Model)
	default:
		return nil, fmt.Errorf("unsupported llm provider kind %q", providerCfg.Kind)
	}

	return NewInstrumentedGenerator(inner, name, recorder), nil
}

// EstimateTokens 按字符长度估算 token：ceil(len/4) 分别作用于提示词与输出
func EstimateTokens(prompt, text string) int {
	return ceilDiv(utf8.RuneCountInString(prompt), 4) + ceilDiv(utf8.RuneCountInString(text), 4)
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// completeResult 填充成功结果；JSON 模式下在网关边界完成结构化抽取
func completeResult(res *wfmodel.GenerateResult, prompt, text string, reportedTokens int, opts wfmodel.GenerateOptions) *wfmodel.GenerateResult {
	res.Success = true
	res.Text = text
	res.JSON = opts.ForceJSON
	if opts.ForceJSON {
		res.Data = wfnode.ExtractJSON(text)
	}
	if reportedTokens > 0 {
		res.TokenUsed = reportedTokens
	} else {
		res.TokenUsed = EstimateTokens(prompt, text)
		res.TokensEstimated = true
	}
	return res
}

// failResult 填充失败结果
func failResult(res *wfmodel.GenerateResult, err error, opts wfmodel.GenerateOptions) *wfmodel.GenerateResult {
	res.Success = false
	res.JSON = opts.ForceJSON
	if opts.ForceJSON {
		res.Data = map[string]any{}
	}
	res.Error = err.Error()
	return res
}
