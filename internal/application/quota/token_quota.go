package quota

import (
	"context"
	"time"

	"bookgen-ai-api/internal/domain/repository"
)

// UsageReporter 汇总书籍维度的 token 用量
type UsageReporter struct {
	llmRepo repository.LLMUsageEventRepository
	now     func() time.Time
}

func NewUsageReporter(llmRepo repository.LLMUsageEventRepository) *UsageReporter {
	return &UsageReporter{llmRepo: llmRepo, now: time.Now}
}

// BookUsage 汇总书籍最近 window 内的调用；window<=0 表示全部
func (r *UsageReporter) BookUsage(ctx context.Context, bookID string, window time.Duration) (repository.UsageSummary, error) {
	var since time.Time
	if window > 0 {
		since = r.now().UTC().Add(-window)
	}
	return r.llmRepo.SummarizeBook(ctx, bookID, since)
}
