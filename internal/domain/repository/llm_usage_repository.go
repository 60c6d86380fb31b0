package repository

import (
	"context"
	"time"

	"bookgen-ai-api/internal/domain/entity"
)

// UsageSummary 一段时间内的 LLM 调用汇总
type UsageSummary struct {
	Calls           int64 `json:"calls"`
	FailedCalls     int64 `json:"failed_calls"`
	Tokens          int64 `json:"tokens"`
	EstimatedTokens int64 `json:"estimated_tokens"`
}

// Add 累加一条流水
func (s *UsageSummary) Add(evt *entity.LLMUsageEvent) {
	s.Calls++
	if !evt.Success {
		s.FailedCalls++
	}
	s.Tokens += int64(evt.TokensUsed)
	if evt.Estimated {
		s.EstimatedTokens += int64(evt.TokensUsed)
	}
}

// LLMUsageEventRepository 只追加的调用流水；since 为零值时统计全部
type LLMUsageEventRepository interface {
	Create(ctx context.Context, event *entity.LLMUsageEvent) error
	SummarizeBook(ctx context.Context, bookID string, since time.Time) (UsageSummary, error)
}
