package book

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookgen-ai-api/internal/config"
	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/infrastructure/persistence/memory"
	"bookgen-ai-api/internal/workflow/chain"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	apperrors "bookgen-ai-api/pkg/errors"
	"bookgen-ai-api/pkg/logger"
)

func outlineJSON(n int) string {
	items := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, map[string]any{
			"chapter_number":          i,
			"chapter_title":           "Part",
			"main_characters":         []string{"Mara"},
			"key_events":              []string{"event"},
			"important_dialogue":      []string{"line"},
			"objectives_and_outcomes": "objective",
			"transition_to_next":      "next",
			"mood_and_tone":           "tense",
		})
	}
	return mustJSON(map[string]any{"title": "Moonfall", "description": "A colony story", "summary": items})
}

func TestCreateOutlineDefaults(t *testing.T) {
	gen := newScriptedGenerator(func(string, int, string) (*wfmodel.GenerateResult, error) {
		return jsonResult("not json at all"), nil
	})
	p := NewPipeline(gen, NoopPacer{}, newRepos(memory.NewStore()), Options{})

	outline, err := p.CreateOutline(context.Background(), "a story", 3)
	require.NoError(t, err)
	assert.Equal(t, "Untitled Book", outline.Title)
	assert.Equal(t, "A generated book", outline.Description)
	assert.Empty(t, outline.Chapters)
}

func TestCreateOutlineRetriesReportedFailures(t *testing.T) {
	gen := newScriptedGenerator(func(_ string, n int, _ string) (*wfmodel.GenerateResult, error) {
		if n == 1 {
			return failedResult("rate limited"), nil
		}
		return jsonResult(outlineJSON(2)), nil
	})
	p := NewPipeline(gen, NoopPacer{}, newRepos(memory.NewStore()), Options{OutlineAttempts: 2})

	outline, err := p.CreateOutline(context.Background(), "a story", 2)
	require.NoError(t, err)
	assert.Equal(t, "Moonfall", outline.Title)
	assert.Len(t, outline.Chapters, 2)
	assert.Equal(t, 2, gen.count(chain.WorkflowOutline))
}

func TestCreateOutlineWithoutRetryPropagatesFailure(t *testing.T) {
	gen := newScriptedGenerator(func(string, int, string) (*wfmodel.GenerateResult, error) {
		return failedResult("rate limited"), nil
	})
	p := NewPipeline(gen, NoopPacer{}, newRepos(memory.NewStore()), Options{})

	_, err := p.CreateOutline(context.Background(), "a story", 2)
	assert.ErrorIs(t, err, apperrors.ErrOutlineFailed)
	assert.Equal(t, 1, gen.count(chain.WorkflowOutline))

	_, err = p.CreateOutline(context.Background(), "a story", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
	assert.Equal(t, 1, gen.count(chain.WorkflowOutline))
}

func TestCreateBookEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := newScriptedGenerator(func(wf string, n int, _ string) (*wfmodel.GenerateResult, error) {
		switch wf {
		case chain.WorkflowOutline:
			return jsonResult(outlineJSON(3)), nil
		case chain.WorkflowChapter:
			if n == 2 {
				return failedResult("rate limited"), nil
			}
			return jsonResult(chapterJSON(n, 40)), nil
		case chain.WorkflowChapterAnalysis:
			return jsonResult(chapterAnalysisJSON), nil
		default:
			return jsonResult(bookAnalysisJSON), nil
		}
	})
	p := NewPipeline(gen, NoopPacer{}, newRepos(store), Options{})

	res, err := p.CreateBook(ctx, GenerationRequest{UserQuery: "a colony on the moon", TotalChapters: 3, AuthorID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Moonfall", res.Book.Title)
	assert.Equal(t, entity.BookStatusPartial, res.Book.Status)
	assert.Equal(t, []int{1, 3}, res.Report.Succeeded)

	stored, err := store.Books().GetByID(ctx, res.Book.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookStatusPartial, stored.Status)
	assert.False(t, stored.IsFree)

	batch, err := p.AnalyzeBookChapters(ctx, res.Book.ID, true)
	require.NoError(t, err)
	assert.Len(t, batch.Chapters, 2)
	assert.Empty(t, batch.Failed)
	require.NotNil(t, batch.Book)
	assert.Equal(t, entity.BookIndexStatusComplete, batch.Book.Status)
	assert.Equal(t, 80, batch.Book.WordCount)
	assert.Equal(t, 2, batch.Book.BookStats.ChaptersWithCliffhangers)
}

// statusFailingBooks 状态更新总是失败
type statusFailingBooks struct {
	repository.BookRepository
}

func (statusFailingBooks) UpdateStatus(context.Context, string, entity.BookStatus) error {
	return errors.New("connection reset")
}

func TestMarkFailedLogsStatusWriteError(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "info", "json")
	t.Cleanup(func() { logger.Init("info", "json") })

	store := memory.NewStore()
	b := seedBook(t, store)
	b.Status = entity.BookStatusGenerating
	repos := newRepos(store)
	repos.Books = statusFailingBooks{BookRepository: store.Books()}
	p := NewPipeline(newScriptedGenerator(nil), NoopPacer{}, repos, Options{})

	ctx := logger.WithContext(context.Background(), logger.BookIDKey, b.ID)
	p.markFailed(ctx, b)

	assert.Equal(t, entity.BookStatusGenerating, b.Status)
	out := buf.String()
	assert.Contains(t, out, "failed to mark book as failed")
	assert.Contains(t, out, "connection reset")
	assert.Contains(t, out, b.ID)
}

func TestAnalyzeBookChaptersUnknownBook(t *testing.T) {
	p := NewPipeline(newScriptedGenerator(nil), NoopPacer{}, newRepos(memory.NewStore()), Options{})
	_, err := p.AnalyzeBookChapters(context.Background(), "missing", false)
	assert.ErrorIs(t, err, apperrors.ErrBookNotFound)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.PipelineConfig{
		OutlineAttempts:      3,
		BookAnalysisMinWords: 80,
		Temperature:          0.7,
		MaxOutputTokens:      4096,
	})
	assert.Equal(t, 3, opts.OutlineAttempts)
	assert.Equal(t, 80, opts.BookAnalysisMinWords)
	require.NotNil(t, opts.Generate.Temperature)
	assert.InDelta(t, 0.7, *opts.Generate.Temperature, 1e-6)
	assert.Equal(t, 4096, opts.Generate.MaxOutputTokens)
}

func TestNewPacer(t *testing.T) {
	p, err := NewPacer(config.PacingConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &DelayPacer{}, p)

	p, err = NewPacer(config.PacingConfig{Mode: "rate", Interval: time.Millisecond}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RatePacer{}, p)

	p, err = NewPacer(config.PacingConfig{Mode: "none"}, nil)
	require.NoError(t, err)
	assert.IsType(t, NoopPacer{}, p)

	_, err = NewPacer(config.PacingConfig{Mode: "redis"}, nil)
	assert.Error(t, err)

	_, err = NewPacer(config.PacingConfig{Mode: "bogus"}, nil)
	assert.Error(t, err)
}

func TestDelayPacerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewDelayPacer(time.Hour).Wait(ctx), context.Canceled)
	assert.NoError(t, NewDelayPacer(0).Wait(context.Background()))
}

func TestRatePacerSpacesCalls(t *testing.T) {
	p := NewRatePacer(20*time.Millisecond, 1)
	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
