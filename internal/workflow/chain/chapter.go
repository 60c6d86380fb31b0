package chain

import (
	"context"
	"fmt"
	"strings"

	wfmodel "bookgen-ai-api/internal/workflow/model"
	wfnode "bookgen-ai-api/internal/workflow/node"
	workflowport "bookgen-ai-api/internal/workflow/port"
	workflowprompt "bookgen-ai-api/internal/workflow/prompt"
)

type ChapterChain struct {
	jsonChain
}

func NewChapterChain(gen workflowport.TextGenerator, opts wfmodel.GenerateOptions) *ChapterChain {
	return &ChapterChain{jsonChain{gen: gen, opts: opts}}
}

// Invoke 生成单章正文。提示词只包含本章规格，不引用其它章节。
func (c *ChapterChain) Invoke(ctx context.Context, in *wfmodel.ChapterGenerateInput) (*wfmodel.GenerateResult, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if in.ChapterNumber < 1 {
		return nil, fmt.Errorf("chapter number must be >= 1")
	}

	spec := in.Spec
	title := strings.TrimSpace(spec.Title)
	if title == "" {
		title = fmt.Sprintf("Chapter %d", in.ChapterNumber)
	}

	return c.invoke(ctx, WorkflowChapter, workflowprompt.PromptChapterV1, map[string]any{
		"chapter_number":     in.ChapterNumber,
		"chapter_title":      title,
		"main_characters":    wfnode.BulletList(spec.MainCharacters, "- (not specified)"),
		"key_events":         wfnode.BulletList(spec.KeyEvents, "- (not specified)"),
		"important_dialogue": wfnode.BulletList(spec.ImportantDialogue, "- (not specified)"),
		"objectives":         orDefault(spec.ObjectivesAndOutcomes, "(not specified)"),
		"transition":         orDefault(spec.TransitionToNext, "(not specified)"),
		"mood":               orDefault(spec.MoodAndTone, "(not specified)"),
	})
}

func orDefault(s, def string) string {
	if v := strings.TrimSpace(s); v != "" {
		return v
	}
	return def
}
