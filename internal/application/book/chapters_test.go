package book

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/infrastructure/persistence/memory"
	"bookgen-ai-api/internal/workflow/chain"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	apperrors "bookgen-ai-api/pkg/errors"
)

func seedBook(t *testing.T, store *memory.Store) *entity.Book {
	t.Helper()
	b := entity.NewBook("author-1", "Moonfall", "A colony fights to survive.", 5)
	require.NoError(t, store.Books().Create(context.Background(), b))
	return b
}

func newChapterStage(gen *scriptedGenerator, store *memory.Store, pacer Pacer) *ChapterStage {
	return NewChapterStage(gen, wfmodel.GenerateOptions{}, store.Chapters(), store.ChapterIndexes(), pacer)
}

func TestGenerateChaptersContinuesPastFailedChapter(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	b := seedBook(t, store)
	pacer := &countingPacer{}

	gen := newScriptedGenerator(func(_ string, n int, _ string) (*wfmodel.GenerateResult, error) {
		if n == 3 {
			return failedResult("rate limited"), nil
		}
		return jsonResult(chapterJSON(n, 20)), nil
	})

	report, err := newChapterStage(gen, store, pacer).GenerateChapters(ctx, specs(5), b.ID, 5)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, "All chapters generated successfully", report.Message)
	assert.Equal(t, []int{1, 2, 4, 5}, report.Succeeded)
	assert.Equal(t, []int{3}, report.Skipped)
	assert.False(t, report.Complete())
	assert.Equal(t, 4, pacer.waits)

	chapters, err := store.Chapters().ListByBook(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 4)
	orders := make([]int, 0, len(chapters))
	for _, ch := range chapters {
		orders = append(orders, ch.OrderIndex)
		assert.Equal(t, entity.CountWords(ch.Content), ch.WordCount)
		assert.True(t, ch.IsFree)

		idx, err := store.ChapterIndexes().GetByChapter(ctx, ch.ID)
		require.NoError(t, err)
		require.NotNil(t, idx)
		assert.True(t, idx.IsSeed())
		assert.Equal(t, "objective", idx.Summary)
		assert.Equal(t, []string{"Mara"}, idx.Characters)
		assert.False(t, idx.Cliffhanger)
	}
	assert.Equal(t, []int{1, 2, 4, 5}, orders)
}

func TestGenerateChaptersUsesLoopIndexAsOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	b := seedBook(t, store)

	gen := newScriptedGenerator(func(wf string, n int, _ string) (*wfmodel.GenerateResult, error) {
		if wf == chain.WorkflowOutline {
			return jsonResult(mustJSON(map[string]any{
				"title":       "Mislabelled",
				"description": "d",
				"summary": []any{
					map[string]any{"chapter_number": 3, "chapter_title": "First"},
					map[string]any{"chapter_number": 1, "chapter_title": "Second"},
					map[string]any{"chapter_number": 2, "chapter_title": "Third"},
				},
			})), nil
		}
		return jsonResult(mustJSON(map[string]any{"content": "body text"})), nil
	})

	p := NewPipeline(gen, NoopPacer{}, newRepos(store), Options{})
	outline, err := p.CreateOutline(ctx, "a story", 3)
	require.NoError(t, err)
	require.Len(t, outline.Chapters, 3)
	assert.Equal(t, 1, outline.Chapters[0].ChapterNumber)
	assert.Equal(t, 3, outline.Chapters[0].ModelChapterNumber)

	_, err = p.GenerateChapters(ctx, outline.Chapters, b.ID, 3)
	require.NoError(t, err)

	for i, title := range []string{"First", "Second", "Third"} {
		ch, err := store.Chapters().GetByBookAndOrder(ctx, b.ID, i+1)
		require.NoError(t, err)
		require.NotNil(t, ch)
		assert.Equal(t, "Chapter "+string(rune('1'+i)), ch.Title)
		assert.Contains(t, gen.prompts[chain.WorkflowChapter][i], title)
	}
}

func TestGenerateChaptersWithFewerSpecs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	b := seedBook(t, store)
	pacer := &countingPacer{}
	gen := newScriptedGenerator(func(_ string, n int, _ string) (*wfmodel.GenerateResult, error) {
		return jsonResult(chapterJSON(n, 5)), nil
	})

	report, err := newChapterStage(gen, store, pacer).GenerateChapters(ctx, specs(2), b.ID, 4)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, []int{1, 2}, report.Succeeded)
	assert.Equal(t, []int{3, 4}, report.Skipped)
	assert.Equal(t, 2, gen.count(chain.WorkflowChapter))
	assert.Equal(t, 2, pacer.waits)
}

func TestGenerateChaptersWithMoreSpecs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	b := seedBook(t, store)
	gen := newScriptedGenerator(func(_ string, n int, _ string) (*wfmodel.GenerateResult, error) {
		return jsonResult(chapterJSON(n, 5)), nil
	})

	report, err := newChapterStage(gen, store, NoopPacer{}).GenerateChapters(ctx, specs(5), b.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, report.Succeeded)

	n, err := store.Chapters().CountByBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGenerateChaptersFallsBackOnUnparseableOutput(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	b := seedBook(t, store)
	gen := newScriptedGenerator(func(string, int, string) (*wfmodel.GenerateResult, error) {
		return jsonResult("not json at all"), nil
	})

	_, err := newChapterStage(gen, store, NoopPacer{}).GenerateChapters(ctx, specs(1), b.ID, 1)
	require.NoError(t, err)

	ch, err := store.Chapters().GetByBookAndOrder(ctx, b.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, "Chapter 1", ch.Title)
	assert.Equal(t, fallbackChapterContent, ch.Content)
	assert.Equal(t, entity.CountWords(fallbackChapterContent), ch.WordCount)
}

func TestGenerateChaptersRedriveSkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	b := seedBook(t, store)
	failSecond := true
	gen := newScriptedGenerator(func(_ string, n int, _ string) (*wfmodel.GenerateResult, error) {
		if n == 2 && failSecond {
			return failedResult("timeout"), nil
		}
		return jsonResult(chapterJSON(1, 5)), nil
	})
	stage := newChapterStage(gen, store, NoopPacer{})

	first, err := stage.GenerateChapters(ctx, specs(3), b.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, first.Skipped)

	failSecond = false
	second, err := stage.GenerateChapters(ctx, specs(3), b.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, second.Existing)
	assert.Equal(t, []int{2}, second.Succeeded)
	assert.Equal(t, 4, gen.count(chain.WorkflowChapter))
}

func TestGenerateChaptersAbortsOnPersistenceError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := newScriptedGenerator(func(_ string, n int, _ string) (*wfmodel.GenerateResult, error) {
		return jsonResult(chapterJSON(n, 5)), nil
	})

	// 书籍不存在，章节写入失败
	report, err := newChapterStage(gen, store, NoopPacer{}).GenerateChapters(ctx, specs(3), "missing-book", 3)
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.NotEmpty(t, report.Error)
	assert.Empty(t, report.Succeeded)
	assert.Equal(t, 1, gen.count(chain.WorkflowChapter))
}

func TestGenerateChaptersAbortsWhenPacerFails(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	b := seedBook(t, store)
	gen := newScriptedGenerator(func(_ string, n int, _ string) (*wfmodel.GenerateResult, error) {
		return jsonResult(chapterJSON(n, 5)), nil
	})

	report, err := newChapterStage(gen, store, &countingPacer{err: context.Canceled}).GenerateChapters(ctx, specs(3), b.ID, 3)
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, []int{1}, report.Succeeded)

	n, err := store.Chapters().CountByBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGenerateChaptersAbortsOnGatewayContractError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	b := seedBook(t, store)
	gen := newScriptedGenerator(func(_ string, n int, _ string) (*wfmodel.GenerateResult, error) {
		if n == 2 {
			return nil, errors.New("unexpected transport panic")
		}
		return jsonResult(chapterJSON(n, 5)), nil
	})

	report, err := newChapterStage(gen, store, NoopPacer{}).GenerateChapters(ctx, specs(3), b.ID, 3)
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, "unexpected transport panic", report.Error)
	assert.Equal(t, []int{1}, report.Succeeded)
}

func TestGenerateChaptersRejectsInvalidInput(t *testing.T) {
	store := memory.NewStore()
	stage := newChapterStage(newScriptedGenerator(nil), store, NoopPacer{})

	_, err := stage.GenerateChapters(context.Background(), specs(1), "", 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)

	_, err = stage.GenerateChapters(context.Background(), specs(1), "book", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}
