package quota

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/domain/service"
	"bookgen-ai-api/internal/infrastructure/persistence/memory"
)

func TestRecorderRejectsNegativeTokens(t *testing.T) {
	rec := NewLLMUsageRecorder(memory.NewStore().LLMUsageEvents())
	assert.Error(t, rec.Record(context.Background(), service.LLMUsageInput{TokensUsed: -1}))

	var nilRec *LLMUsageRecorder
	assert.NoError(t, nilRec.Record(context.Background(), service.LLMUsageInput{}))
}

func TestBookUsageSummary(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().LLMUsageEvents()
	rec := NewLLMUsageRecorder(repo)

	inputs := []service.LLMUsageInput{
		{BookID: " b1 ", Workflow: "outline", TokensUsed: 100, Success: true},
		{BookID: "b1", Workflow: "chapter", TokensUsed: 40, Estimated: true, Success: true},
		{BookID: "b1", Workflow: "chapter", TokensUsed: 0, Success: false},
		{BookID: "b2", Workflow: "outline", TokensUsed: 999, Success: true},
	}
	for _, in := range inputs {
		require.NoError(t, rec.Record(ctx, in))
	}

	got, err := NewUsageReporter(repo).BookUsage(ctx, "b1", 0)
	require.NoError(t, err)
	want := repository.UsageSummary{Calls: 3, FailedCalls: 1, Tokens: 140, EstimatedTokens: 40}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestBookUsageWindow(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().LLMUsageEvents()
	require.NoError(t, NewLLMUsageRecorder(repo).Record(ctx, service.LLMUsageInput{BookID: "b1", TokensUsed: 5, Success: true}))

	r := NewUsageReporter(repo)
	r.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	got, err := r.BookUsage(ctx, "b1", time.Hour)
	require.NoError(t, err)
	assert.Zero(t, got.Calls)
}
