package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"bookgen-ai-api/internal/config"
	wfmodel "bookgen-ai-api/internal/workflow/model"
)

// GeminiGateway 基于 google.golang.org/genai 的文本生成网关
type GeminiGateway struct {
	client  *genai.Client
	model   string
	cfg     config.ProviderConfig
	timeout time.Duration
}

// NewGeminiGateway 创建 Gemini 网关；凭证只从配置读取
func NewGeminiGateway(ctx context.Context, cfg config.ProviderConfig) (*GeminiGateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api_key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiGateway{
		client:  client,
		model:   cfg.Model,
		cfg:     cfg,
		timeout: cfg.Timeout,
	}, nil
}

// Generate 实现 port.TextGenerator
func (g *GeminiGateway) Generate(ctx context.Context, prompt string, opts wfmodel.GenerateOptions) (*wfmodel.GenerateResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	start := time.Now()
	res := &wfmodel.GenerateResult{Provider: KindGemini, Model: g.model}
	defer func() { res.ProcessingTimeMs = time.Since(start).Milliseconds() }()

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(callCtx, g.model, genai.Text(prompt), g.buildConfig(opts))
	if err != nil {
		// 调用方取消不属于提供商失败
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return failResult(res, fmt.Errorf("gemini generate: %w", err), opts), nil
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return failResult(res, errors.New(emptyResponseReason(resp)), opts), nil
	}

	reported := 0
	if resp.UsageMetadata != nil {
		reported = int(resp.UsageMetadata.TotalTokenCount)
	}
	if resp.ModelVersion != "" {
		res.Model = resp.ModelVersion
	}
	return completeResult(res, prompt, text, reported, opts), nil
}

func (g *GeminiGateway) buildConfig(opts wfmodel.GenerateOptions) *genai.GenerateContentConfig {
	conf := &genai.GenerateContentConfig{
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
	if conf.Temperature == nil && g.cfg.Temperature > 0 {
		conf.Temperature = genai.Ptr(float32(g.cfg.Temperature))
	}
	if opts.TopK != nil {
		conf.TopK = genai.Ptr(float32(*opts.TopK))
	}
	switch {
	case opts.MaxOutputTokens > 0:
		conf.MaxOutputTokens = int32(opts.MaxOutputTokens)
	case g.cfg.MaxTokens > 0:
		conf.MaxOutputTokens = int32(g.cfg.MaxTokens)
	}
	if opts.ForceJSON {
		conf.ResponseMIMEType = "application/json"
	}
	return conf
}

func emptyResponseReason(resp *genai.GenerateContentResponse) string {
	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Sprintf("gemini returned no content: blocked (%s)", resp.PromptFeedback.BlockReason)
	}
	return "gemini returned no content"
}
