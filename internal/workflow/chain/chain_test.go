package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmctx "bookgen-ai-api/internal/domain/service"
	wfmodel "bookgen-ai-api/internal/workflow/model"
)

type recordingGenerator struct {
	prompts   []string
	opts      []wfmodel.GenerateOptions
	workflows []string
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string, opts wfmodel.GenerateOptions) (*wfmodel.GenerateResult, error) {
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	g.workflows = append(g.workflows, llmctx.WorkflowFromContext(ctx))
	return &wfmodel.GenerateResult{Success: true, JSON: true, Data: map[string]any{}}, nil
}

func TestChapterChainEmbedsOnlyItsOwnSpec(t *testing.T) {
	gen := &recordingGenerator{}
	temp := float32(0.8)
	c := NewChapterChain(gen, wfmodel.GenerateOptions{Temperature: &temp})

	_, err := c.Invoke(context.Background(), &wfmodel.ChapterGenerateInput{
		ChapterNumber: 2,
		Spec: wfmodel.ChapterSpec{
			ChapterNumber:         2,
			Title:                 "The Bridge",
			MainCharacters:        []string{"Mara", "Tobin"},
			KeyEvents:             []string{"bridge collapses"},
			ImportantDialogue:     []string{"Hold on!"},
			ObjectivesAndOutcomes: "Mara chooses to save Tobin",
			TransitionToNext:      "they reach the city",
			MoodAndTone:           "tense",
		},
	})
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)

	p := gen.prompts[0]
	assert.Contains(t, p, "Write chapter 2")
	assert.Contains(t, p, "Chapter Title: The Bridge")
	assert.Contains(t, p, "- Mara\n- Tobin")
	assert.Contains(t, p, "bridge collapses")
	assert.Contains(t, p, "Mara chooses to save Tobin")
	assert.Contains(t, p, "they reach the city")
	assert.NotContains(t, p, "<no value>")

	assert.True(t, gen.opts[0].ForceJSON)
	require.NotNil(t, gen.opts[0].Temperature)
	assert.Equal(t, float32(0.8), *gen.opts[0].Temperature)
	assert.Equal(t, WorkflowChapter, gen.workflows[0])
}

func TestChapterChainFallsBackOnEmptySpecFields(t *testing.T) {
	gen := &recordingGenerator{}
	c := NewChapterChain(gen, wfmodel.GenerateOptions{})

	_, err := c.Invoke(context.Background(), &wfmodel.ChapterGenerateInput{ChapterNumber: 5})
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[0], "Chapter Title: Chapter 5")
	assert.Contains(t, gen.prompts[0], "(not specified)")
}

func TestChainsValidateInput(t *testing.T) {
	gen := &recordingGenerator{}
	ctx := context.Background()

	_, err := NewOutlineChain(gen, wfmodel.GenerateOptions{}).Invoke(ctx, &wfmodel.OutlineInput{UserQuery: "x", TotalChapters: 0})
	assert.Error(t, err)
	_, err = NewOutlineChain(gen, wfmodel.GenerateOptions{}).Invoke(ctx, &wfmodel.OutlineInput{UserQuery: " ", TotalChapters: 3})
	assert.Error(t, err)
	_, err = NewChapterAnalysisChain(gen, wfmodel.GenerateOptions{}).Invoke(ctx, &wfmodel.ChapterAnalysisInput{})
	assert.Error(t, err)
	_, err = NewBookAnalysisChain(gen, wfmodel.GenerateOptions{}).Invoke(ctx, &wfmodel.BookAnalysisInput{})
	assert.Error(t, err)
	_, err = NewChapterChain(nil, wfmodel.GenerateOptions{}).Invoke(ctx, &wfmodel.ChapterGenerateInput{ChapterNumber: 1})
	assert.Error(t, err)

	assert.Empty(t, gen.prompts)
}

func TestChapterAnalysisChainIncludesBookContext(t *testing.T) {
	gen := &recordingGenerator{}
	c := NewChapterAnalysisChain(gen, wfmodel.GenerateOptions{})

	_, err := c.Invoke(context.Background(), &wfmodel.ChapterAnalysisInput{
		BookTitle:     "Moonfall",
		BookSummary:   "A colony fights to survive.",
		BookGenre:     "science fiction",
		BookThemes:    []string{"survival", "trust"},
		ChapterNumber: 1,
		ChapterTitle:  "Landing",
		Content:       "The ship touched down.",
	})
	require.NoError(t, err)

	p := gen.prompts[0]
	assert.Contains(t, p, "Book Summary: A colony fights to survive.")
	assert.Contains(t, p, "Themes: survival, trust")
	assert.Contains(t, p, "Chapter 1: Landing")
	assert.Contains(t, p, "The ship touched down.")
	assert.Equal(t, WorkflowChapterAnalysis, gen.workflows[0])
}
