package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"bookgen-ai-api/internal/config"
)

// ChatModelSource 按提供商名取得 eino ChatModel
type ChatModelSource interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// EinoModels 惰性构造并缓存 OpenAI 兼容的 ChatModel；构造失败不缓存，下次调用重试
type EinoModels struct {
	providers map[string]config.ProviderConfig

	mu     sync.Mutex
	models map[string]model.BaseChatModel
}

var _ ChatModelSource = (*EinoModels)(nil)

func NewEinoModels(providers map[string]config.ProviderConfig) *EinoModels {
	return &EinoModels{providers: providers, models: make(map[string]model.BaseChatModel)}
}

func (m *EinoModels) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cm, ok := m.models[name]; ok {
		return cm, nil
	}
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}
	cfg, err := chatModelConfig(name, p)
	if err != nil {
		return nil, err
	}
	cm, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s: %w", name, err)
	}
	m.models[name] = cm
	return cm, nil
}

// chatModelConfig 把提供商配置转换为 eino openai 配置；采样参数以单次调用的选项为准
func chatModelConfig(name string, p config.ProviderConfig) (*openai.ChatModelConfig, error) {
	if kind := kindOf(p); kind != KindOpenAI {
		return nil, fmt.Errorf("provider %s is %s, not openai-compatible", name, kind)
	}
	if p.APIKey == "" {
		return nil, fmt.Errorf("provider %s has no api_key", name)
	}

	cfg := &openai.ChatModelConfig{
		APIKey:  p.APIKey,
		BaseURL: p.BaseURL,
		Model:   p.Model,
		Timeout: p.Timeout,
	}
	if p.MaxTokens > 0 {
		maxTokens := p.MaxTokens
		cfg.MaxTokens = &maxTokens
	}
	if p.Temperature > 0 {
		temp := float32(p.Temperature)
		cfg.Temperature = &temp
	}
	return cfg, nil
}
