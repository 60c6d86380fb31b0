package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOutline(t *testing.T) {
	r := NewRegistry()
	out, err := r.Render(context.Background(), PromptOutlineV1, map[string]any{
		"user_query":     "a heist on the moon",
		"total_chapters": 4,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "expert book creator")
	assert.Contains(t, out, "User Request: a heist on the moon")
	assert.Contains(t, out, "exactly 4 chapter objects")
	assert.Contains(t, out, `"chapter_number": 1`)
	assert.Contains(t, out, `"objectives_and_outcomes"`)
	assert.NotContains(t, out, "<no value>")
}

func TestRenderChapterAnalysisWithoutBookContext(t *testing.T) {
	r := NewRegistry()
	out, err := r.Render(context.Background(), PromptChapterAnalysisV1, map[string]any{
		"book_context":   "",
		"chapter_number": 2,
		"chapter_title":  "Ashes",
		"content":        "The fire died.",
	})
	require.NoError(t, err)

	assert.NotContains(t, out, "Book Context")
	assert.Contains(t, out, "Chapter 2: Ashes")
	assert.Contains(t, out, `"thematicAnalysis"`)
}

func TestChatTemplateIsCached(t *testing.T) {
	r := NewRegistry()
	a, err := r.ChatTemplate(PromptBookAnalysisV1)
	require.NoError(t, err)
	b, err := r.ChatTemplate(PromptBookAnalysisV1)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = r.ChatTemplate(PromptID("nope"))
	assert.Error(t, err)
}
