package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
)

// LLMUsageEventRepository llm_usage_events 表
type LLMUsageEventRepository struct {
	client *Client
}

var _ repository.LLMUsageEventRepository = (*LLMUsageEventRepository)(nil)

func NewLLMUsageEventRepository(client *Client) *LLMUsageEventRepository {
	return &LLMUsageEventRepository{client: client}
}

func (r *LLMUsageEventRepository) Create(ctx context.Context, event *entity.LLMUsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.Create")
	defer span.End()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := getDB(ctx, r.client.db).Create(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert llm usage event: %w", err)
	}
	return nil
}

// SummarizeBook 聚合书籍自 since 起的调用流水
func (r *LLMUsageEventRepository) SummarizeBook(ctx context.Context, bookID string, since time.Time) (repository.UsageSummary, error) {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.SummarizeBook")
	defer span.End()

	q := getDB(ctx, r.client.db).Model(&entity.LLMUsageEvent{}).Where("book_id = ?", bookID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var sum repository.UsageSummary
	err := q.Select(`COUNT(*) AS calls,
		COUNT(*) FILTER (WHERE NOT success) AS failed_calls,
		COALESCE(SUM(tokens_used), 0) AS tokens,
		COALESCE(SUM(tokens_used) FILTER (WHERE estimated), 0) AS estimated_tokens`).
		Scan(&sum).Error
	if err != nil {
		span.RecordError(err)
		return repository.UsageSummary{}, fmt.Errorf("failed to summarize llm usage for %s: %w", bookID, err)
	}
	return sum, nil
}
