package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/application/quota"
	"bookgen-ai-api/internal/domain/entity"
	llmctx "bookgen-ai-api/internal/domain/service"
	"bookgen-ai-api/internal/infrastructure/messaging"
	"bookgen-ai-api/internal/infrastructure/persistence/memory"
	"bookgen-ai-api/internal/workflow/chain"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	wfnode "bookgen-ai-api/internal/workflow/node"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubGenerator 按工作流返回固定 JSON
type stubGenerator struct {
	byWorkflow map[string]string
}

func (g *stubGenerator) Generate(ctx context.Context, _ string, _ wfmodel.GenerateOptions) (*wfmodel.GenerateResult, error) {
	raw, ok := g.byWorkflow[llmctx.WorkflowFromContext(ctx)]
	if !ok {
		return &wfmodel.GenerateResult{Success: false, Error: "unavailable", JSON: true, Data: map[string]any{}}, nil
	}
	return &wfmodel.GenerateResult{Success: true, Text: raw, JSON: true, Data: wfnode.ExtractJSON(raw), TokenUsed: 10, Model: "stub"}, nil
}

type recordingPublisher struct {
	bookJobs    []*messaging.BookGenerateJob
	analyzeJobs []*messaging.BookAnalyzeJob
}

func (p *recordingPublisher) PublishBookGenerate(_ context.Context, job *messaging.BookGenerateJob) (string, error) {
	p.bookJobs = append(p.bookJobs, job)
	return "1-0", nil
}

func (p *recordingPublisher) PublishChapterAnalyze(context.Context, *messaging.ChapterAnalyzeJob) (string, error) {
	return "2-0", nil
}

func (p *recordingPublisher) PublishBookAnalyze(_ context.Context, job *messaging.BookAnalyzeJob) (string, error) {
	p.analyzeJobs = append(p.analyzeJobs, job)
	return "3-0", nil
}

type fixture struct {
	engine    *gin.Engine
	store     *memory.Store
	publisher *recordingPublisher
}

func newFixture(t *testing.T, gen *stubGenerator) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := book.Repositories{
		Books:          store.Books(),
		Chapters:       store.Chapters(),
		ChapterIndexes: store.ChapterIndexes(),
		BookIndexes:    store.BookIndexes(),
	}
	pipeline := book.NewPipeline(gen, book.NoopPacer{}, repos, book.Options{})
	pub := &recordingPublisher{}

	gh := NewGenerationHandler(pipeline, store.Books(), pub)
	ah := NewAnalysisHandler(pipeline, pub)
	ih := NewIndexHandler(store.Books(), store.ChapterIndexes(), store.BookIndexes())
	uh := NewUsageHandler(quota.NewUsageReporter(store.LLMUsageEvents()))
	bh := NewBookHandler(store.Books(), store.Chapters())

	r := gin.New()
	r.POST("/books/outline", gh.CreateOutline)
	r.POST("/books/generate", gh.GenerateBook)
	r.POST("/books/:bid/chapters/generate", gh.GenerateChapters)
	r.POST("/books/:bid/analyze", ah.AnalyzeBook)
	r.POST("/chapters/:cid/analyze", ah.AnalyzeChapter)
	r.GET("/books/:bid/index", ih.GetBookIndex)
	r.GET("/chapters/:cid/index", ih.GetChapterIndex)
	r.GET("/books/:bid/chapter-indexes", ih.ListBookChapterIndexes)
	r.GET("/chapter-indexes", ih.SearchChapterIndexes)
	r.GET("/books/:bid/usage", uh.GetBookUsage)
	r.GET("/books", bh.ListBooks)
	r.GET("/books/:bid", bh.GetBook)
	r.GET("/chapters/:cid", bh.GetChapter)
	return &fixture{engine: r, store: store, publisher: pub}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

const outlineJSON = `{"title":"Tide","description":"Sea story","summary":[{"chapter_number":1,"chapter_title":"Shore","main_characters":["Ada"],"key_events":["arrival"],"objectives_and_outcomes":"Ada lands","mood_and_tone":"calm"}]}`

func TestCreateOutlineValidatesBody(t *testing.T) {
	f := newFixture(t, &stubGenerator{})

	w := f.do(http.MethodPost, "/books/outline", `{"user_query":"sea"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOutlineProviderFailureIsBadGateway(t *testing.T) {
	f := newFixture(t, &stubGenerator{})

	w := f.do(http.MethodPost, "/books/outline", `{"user_query":"sea","total_chapters":1}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGenerateBookSync(t *testing.T) {
	f := newFixture(t, &stubGenerator{byWorkflow: map[string]string{
		chain.WorkflowOutline: outlineJSON,
		chain.WorkflowChapter: `{"title":"Shore","content":"The boat touched sand at dawn."}`,
	}})

	w := f.do(http.MethodPost, "/books/generate", `{"user_query":"sea","total_chapters":1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	bookData := data["book"].(map[string]any)
	assert.Equal(t, "Tide", bookData["title"])
	assert.Equal(t, string(entity.BookStatusGenerated), bookData["status"])
	report := data["report"].(map[string]any)
	assert.Equal(t, true, report["success"])
}

func TestGenerateBookAsyncPublishesJob(t *testing.T) {
	f := newFixture(t, &stubGenerator{})

	w := f.do(http.MethodPost, "/books/generate?async=true", `{"user_query":"sea","total_chapters":3,"genre":"saga"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, f.publisher.bookJobs, 1)
	assert.Equal(t, 3, f.publisher.bookJobs[0].TotalChapters)
	assert.Equal(t, "saga", f.publisher.bookJobs[0].Genre)
	assert.Equal(t, messaging.JobTypeBookGenerate, decodeData(t, w)["type"])
}

func TestGenerateChaptersUnknownBook(t *testing.T) {
	f := newFixture(t, &stubGenerator{})

	w := f.do(http.MethodPost, "/books/missing/chapters/generate", `{"total_chapters":1,"chapters":[]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeChapterNotFound(t *testing.T) {
	f := newFixture(t, &stubGenerator{})

	w := f.do(http.MethodPost, "/chapters/nope/analyze", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeBookPendingThenIndexVisible(t *testing.T) {
	f := newFixture(t, &stubGenerator{})
	b := entity.NewBook("", "Tide", "", 1)
	require.NoError(t, f.store.Books().Create(context.Background(), b))

	w := f.do(http.MethodGet, "/books/"+b.ID+"/index", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/books/"+b.ID+"/analyze", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/books/"+b.ID+"/index", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(entity.BookIndexStatusPending), decodeData(t, w)["status"])
}

func TestAnalyzeBookAsyncWithoutPublisher(t *testing.T) {
	f := newFixture(t, &stubGenerator{})
	ah := NewAnalysisHandler(nil, nil)
	f.engine.POST("/solo/:bid/analyze", ah.AnalyzeBook)

	w := f.do(http.MethodPost, "/solo/b1/analyze?async=1", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSearchChapterIndexes(t *testing.T) {
	f := newFixture(t, &stubGenerator{})
	ctx := context.Background()
	b := entity.NewBook("", "Tide", "", 1)
	require.NoError(t, f.store.Books().Create(ctx, b))
	ch := entity.NewChapter(b.ID, 1, "Shore", "words here")
	require.NoError(t, f.store.Chapters().Create(ctx, ch))
	require.NoError(t, f.store.ChapterIndexes().Upsert(ctx, &entity.ChapterIndex{
		ChapterID:       ch.ID,
		BookID:          b.ID,
		Characters:      []string{"Ada Lovelace"},
		KeyEvents:       []string{},
		Mood:            "calm",
		AnalysisVersion: entity.ChapterIndexVersionAnalyzed,
		LastAnalyzed:    time.Now(),
	}))

	w := f.do(http.MethodGet, "/chapter-indexes", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/chapter-indexes?character=ada", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []entity.ChapterIndex `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, ch.ID, resp.Data[0].ChapterID)

	w = f.do(http.MethodGet, "/books/"+b.ID+"/chapter-indexes", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

type failingChecker struct{ err error }

func (c failingChecker) HealthCheck(context.Context) error { return c.err }

func TestReadyReportsRequiredFailures(t *testing.T) {
	r := gin.New()
	h := NewHealthHandler("test",
		Dependency{Name: "postgres", Checker: failingChecker{err: assert.AnError}, Required: true},
		Dependency{Name: "redis", Checker: nil, Required: true},
	)
	r.GET("/ready", h.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp readinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Checks["postgres"].Status)
	assert.NotContains(t, resp.Checks, "redis")
}

func TestReadyOptionalDependencyDegrades(t *testing.T) {
	r := gin.New()
	h := NewHealthHandler("test", Dependency{Name: "redis", Checker: failingChecker{err: assert.AnError}})
	r.GET("/ready", h.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetBookUsage(t *testing.T) {
	f := newFixture(t, &stubGenerator{})
	ctx := context.Background()
	events := f.store.LLMUsageEvents()
	require.NoError(t, events.Create(ctx, &entity.LLMUsageEvent{ID: "u1", BookID: "b1", TokensUsed: 30, Success: true}))
	require.NoError(t, events.Create(ctx, &entity.LLMUsageEvent{ID: "u2", BookID: "b1", TokensUsed: 12, Estimated: true}))

	w := f.do(http.MethodGet, "/books/b1/usage?window=24h", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "24h0m0s", data["window"])
	assert.EqualValues(t, 2, data["calls"])
	assert.EqualValues(t, 1, data["failed_calls"])
	assert.EqualValues(t, 42, data["tokens"])
	assert.EqualValues(t, 12, data["estimated_tokens"])

	w = f.do(http.MethodGet, "/books/b1/usage?window=soon", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookReadEndpoints(t *testing.T) {
	f := newFixture(t, &stubGenerator{byWorkflow: map[string]string{
		chain.WorkflowOutline: outlineJSON,
		chain.WorkflowChapter: `{"title":"Shore","content":"The boat touched sand at dawn."}`,
	}})
	w := f.do(http.MethodPost, "/books/generate", `{"user_query":"sea","total_chapters":1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bookID := decodeData(t, w)["book"].(map[string]any)["id"].(string)

	w = f.do(http.MethodGet, "/books?status=generated", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, bookID, list.Data[0]["id"])
	assert.Equal(t, 1, list.Meta.Total)

	w = f.do(http.MethodGet, "/books?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/books/"+bookID, "")
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodeData(t, w)
	chapters := detail["chapters"].([]any)
	require.Len(t, chapters, 1)
	first := chapters[0].(map[string]any)
	assert.EqualValues(t, 6, detail["total_words"])

	w = f.do(http.MethodGet, "/chapters/"+first["id"].(string), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "The boat touched sand at dawn.", decodeData(t, w)["content"])

	w = f.do(http.MethodGet, "/books/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodGet, "/chapters/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
