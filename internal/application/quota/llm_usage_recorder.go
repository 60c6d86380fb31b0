// Package quota 提供 LLM 用量流水与统计
package quota

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/domain/service"
)

type LLMUsageRecorder struct {
	usageRepo repository.LLMUsageEventRepository
}

func NewLLMUsageRecorder(usageRepo repository.LLMUsageEventRepository) *LLMUsageRecorder {
	return &LLMUsageRecorder{usageRepo: usageRepo}
}

func (r *LLMUsageRecorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	if r == nil || r.usageRepo == nil {
		return nil
	}
	if in.TokensUsed < 0 {
		return fmt.Errorf("invalid token usage")
	}

	evt := &entity.LLMUsageEvent{
		ID:         uuid.NewString(),
		BookID:     strings.TrimSpace(in.BookID),
		Provider:   strings.TrimSpace(in.Provider),
		Model:      strings.TrimSpace(in.Model),
		Workflow:   strings.TrimSpace(in.Workflow),
		TokensUsed: in.TokensUsed,
		Estimated:  in.Estimated,
		Success:    in.Success,
		DurationMs: in.DurationMs,
	}
	return r.usageRepo.Create(ctx, evt)
}
