// Package service 定义领域层对外部能力的契约
package service

import "context"

// LLMUsageInput 一次生成调用的计量结果
type LLMUsageInput struct {
	BookID   string
	Workflow string
	Provider string
	Model    string

	// TokensUsed 为 Estimated 时按字符长度折算
	TokensUsed int
	Estimated  bool
	Success    bool
	DurationMs int
}

// LLMUsageRecorder 写入用量流水；调用方只记录错误，不因记录失败中断生成
type LLMUsageRecorder interface {
	Record(ctx context.Context, in LLMUsageInput) error
}
