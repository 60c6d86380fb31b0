package book

import (
	"context"
	"encoding/json"
	"sync"

	llmctx "bookgen-ai-api/internal/domain/service"
	"bookgen-ai-api/internal/infrastructure/persistence/memory"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	wfnode "bookgen-ai-api/internal/workflow/node"
)

// scriptedGenerator 按工作流与调用序号返回预设结果
type scriptedGenerator struct {
	mu      sync.Mutex
	calls   map[string]int
	prompts map[string][]string
	reply   func(workflow string, n int, prompt string) (*wfmodel.GenerateResult, error)
}

func newScriptedGenerator(reply func(workflow string, n int, prompt string) (*wfmodel.GenerateResult, error)) *scriptedGenerator {
	return &scriptedGenerator{
		calls:   map[string]int{},
		prompts: map[string][]string{},
		reply:   reply,
	}
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, _ wfmodel.GenerateOptions) (*wfmodel.GenerateResult, error) {
	wf := llmctx.WorkflowFromContext(ctx)
	g.mu.Lock()
	g.calls[wf]++
	n := g.calls[wf]
	g.prompts[wf] = append(g.prompts[wf], prompt)
	g.mu.Unlock()
	return g.reply(wf, n, prompt)
}

func (g *scriptedGenerator) count(workflow string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[workflow]
}

func jsonResult(text string) *wfmodel.GenerateResult {
	return &wfmodel.GenerateResult{
		Success:   true,
		Text:      text,
		Data:      wfnode.ExtractJSON(text),
		JSON:      true,
		TokenUsed: 10,
		Model:     "fake-model",
	}
}

func failedResult(reason string) *wfmodel.GenerateResult {
	return &wfmodel.GenerateResult{Success: false, JSON: true, Data: map[string]any{}, Error: reason}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func chapterJSON(n int, words int) string {
	content := ""
	for i := 0; i < words; i++ {
		if i > 0 {
			content += " "
		}
		content += "word"
	}
	return mustJSON(map[string]any{"title": "Generated " + string(rune('A'+n-1)), "content": content})
}

// countingPacer 记录等待次数
type countingPacer struct {
	mu    sync.Mutex
	waits int
	err   error
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	if p.err != nil {
		return p.err
	}
	return ctx.Err()
}

func newRepos(store *memory.Store) Repositories {
	return Repositories{
		Books:          store.Books(),
		Chapters:       store.Chapters(),
		ChapterIndexes: store.ChapterIndexes(),
		BookIndexes:    store.BookIndexes(),
	}
}

func specs(n int) []wfmodel.ChapterSpec {
	out := make([]wfmodel.ChapterSpec, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, wfmodel.ChapterSpec{
			ChapterNumber:         i,
			Title:                 "Spec title",
			MainCharacters:        []string{"Mara"},
			KeyEvents:             []string{"event"},
			ObjectivesAndOutcomes: "objective",
			MoodAndTone:           "tense",
		})
	}
	return out
}
