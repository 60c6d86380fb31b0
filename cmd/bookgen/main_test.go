package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/application/quota"
	"bookgen-ai-api/internal/config"
	llmctx "bookgen-ai-api/internal/domain/service"
	"bookgen-ai-api/internal/infrastructure/persistence/memory"
	"bookgen-ai-api/internal/workflow/chain"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	wfnode "bookgen-ai-api/internal/workflow/node"
)

type stubGenerator struct {
	byWorkflow map[string]string
}

func (g *stubGenerator) Generate(ctx context.Context, _ string, _ wfmodel.GenerateOptions) (*wfmodel.GenerateResult, error) {
	raw, ok := g.byWorkflow[llmctx.WorkflowFromContext(ctx)]
	if !ok {
		return &wfmodel.GenerateResult{Success: false, Error: "unavailable", JSON: true, Data: map[string]any{}}, nil
	}
	return &wfmodel.GenerateResult{Success: true, Text: raw, JSON: true, Data: wfnode.ExtractJSON(raw), TokenUsed: 7, Model: "stub"}, nil
}

const outlineJSON = `{"title":"Tide","description":"Sea story","summary":[{"chapter_number":1,"chapter_title":"Shore","main_characters":["Ada"],"mood_and_tone":"calm"},{"chapter_number":2,"chapter_title":"Storm","main_characters":["Ada","Bo"],"mood_and_tone":"tense"}]}`

func newTestContext(gen *stubGenerator) *commandContext {
	store := memory.NewStore()
	repos := book.Repositories{
		Books:          store.Books(),
		Chapters:       store.Chapters(),
		ChapterIndexes: store.ChapterIndexes(),
		BookIndexes:    store.BookIndexes(),
	}
	return &commandContext{
		store:    storeMemory,
		repos:    repos,
		usage:    quota.NewUsageReporter(store.LLMUsageEvents()),
		pipeline: book.NewPipeline(gen, book.NoopPacer{}, repos, book.Options{}),
	}
}

func run(t *testing.T, ctx *commandContext, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommandWith(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOutlineCommandRendersTable(t *testing.T) {
	ctx := newTestContext(&stubGenerator{byWorkflow: map[string]string{chain.WorkflowOutline: outlineJSON}})

	out, err := run(t, ctx, "outline", "a sea story", "-n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Tide")
	assert.Contains(t, out, "Storm")
	assert.Contains(t, out, "Ada, Bo")
}

func TestGenerateCommandJSON(t *testing.T) {
	ctx := newTestContext(&stubGenerator{byWorkflow: map[string]string{
		chain.WorkflowOutline: outlineJSON,
		chain.WorkflowChapter: `{"title":"Opening","content":"the waves rolled in slowly"}`,
	}})

	out, err := run(t, ctx, "--json", "generate", "a sea story", "-n", "2")
	require.NoError(t, err)

	var got struct {
		Book struct {
			Title  string `json:"title"`
			Status string `json:"status"`
		} `json:"book"`
		Report struct {
			Succeeded []int `json:"succeeded"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Tide", got.Book.Title)
	assert.Equal(t, "generated", got.Book.Status)
	assert.Equal(t, []int{1, 2}, got.Report.Succeeded)
}

func TestOutlineCommandPropagatesFailure(t *testing.T) {
	ctx := newTestContext(&stubGenerator{})

	_, err := run(t, ctx, "outline", "a sea story")
	require.Error(t, err)
}

func TestUnknownStoreRejected(t *testing.T) {
	ctx := &commandContext{store: "sqlite", cfg: &config.Config{}}

	_, err := ctx.ensurePipeline(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"x"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "x")
	assert.Empty(t, renderTable(nil, nil, nil))
}
