package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallLabels(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", WorkflowFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))
	assert.Empty(t, BookFromContext(ctx))

	ctx = WithProvider(WithWorkflow(ctx, " chapter_generate "), "gemini")
	ctx = WithBook(ctx, "book-7")
	assert.Equal(t, CallLabels{Workflow: "chapter_generate", Provider: "gemini", BookID: "book-7"}, LabelsFromContext(ctx))

	// 空值不覆盖已有值
	ctx = WithWorkflow(ctx, "  ")
	assert.Equal(t, "chapter_generate", WorkflowFromContext(ctx))
}

func TestLabelsDoNotLeakToParent(t *testing.T) {
	parent := WithWorkflow(context.Background(), "outline")
	child := WithWorkflow(parent, "chapter")
	assert.Equal(t, "outline", WorkflowFromContext(parent))
	assert.Equal(t, "chapter", WorkflowFromContext(child))
}
