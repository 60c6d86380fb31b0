package model

// GenerateOptions 文本生成参数；nil / 零值表示使用提供商默认值
type GenerateOptions struct {
	Temperature     *float32
	TopP            *float32
	TopK            *int32
	MaxOutputTokens int
	// ForceJSON 要求提供商将输出约束为单个 JSON 文档（不保证语法正确）
	ForceJSON bool
}

// GenerateResult 文本生成网关的统一返回。
// ForceJSON 请求时 Data 为抽取后的对象（抽取失败为空 map），否则只有 Text 有意义。
type GenerateResult struct {
	Success bool

	Text string
	Data map[string]any
	JSON bool

	TokenUsed int
	// TokensEstimated 为 true 表示 TokenUsed 按字符长度估算
	TokensEstimated  bool
	ProcessingTimeMs int64

	Provider string
	Model    string
	Error    string
}

// Response 返回与请求模式匹配的响应体：JSON 模式为对象，否则为原文
func (r *GenerateResult) Response() any {
	if r == nil {
		return nil
	}
	if r.JSON {
		return r.Data
	}
	return r.Text
}

// AIAnalysis 对外暴露的 AI 调用摘要
type AIAnalysis struct {
	Success          bool   `json:"success"`
	ProcessingTimeMs int64  `json:"processing_time_ms,omitempty"`
	TokenUsed        int    `json:"token_used,omitempty"`
	Model            string `json:"model,omitempty"`
	Error            string `json:"error,omitempty"`
}

// AnalysisFrom 从网关结果构造 AIAnalysis
func AnalysisFrom(r *GenerateResult) AIAnalysis {
	if r == nil {
		return AIAnalysis{}
	}
	return AIAnalysis{
		Success:          r.Success,
		ProcessingTimeMs: r.ProcessingTimeMs,
		TokenUsed:        r.TokenUsed,
		Model:            r.Model,
		Error:            r.Error,
	}
}
