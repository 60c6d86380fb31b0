package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/infrastructure/messaging"
	"bookgen-ai-api/pkg/errors"
)

type fakePipeline struct {
	createErr   error
	analyzeErr  error
	requests    []book.GenerationRequest
	chapterIDs  []string
	batchCalled bool
}

func (p *fakePipeline) CreateBook(_ context.Context, req book.GenerationRequest) (*book.GenerationResult, error) {
	p.requests = append(p.requests, req)
	if p.createErr != nil {
		return nil, p.createErr
	}
	b := entity.NewBook(req.AuthorID, "Title", "", req.TotalChapters)
	b.Status = entity.BookStatusGenerated
	return &book.GenerationResult{Book: b, Report: &book.ChapterRunReport{Success: true}}, nil
}

func (p *fakePipeline) AnalyzeChapter(_ context.Context, chapterID string) (*book.ChapterAnalysis, error) {
	p.chapterIDs = append(p.chapterIDs, chapterID)
	if p.analyzeErr != nil {
		return nil, p.analyzeErr
	}
	return &book.ChapterAnalysis{ChapterIndex: &entity.ChapterIndex{ChapterID: chapterID}}, nil
}

func (p *fakePipeline) AnalyzeBook(_ context.Context, bookID string) (*book.BookAnalysis, error) {
	if p.analyzeErr != nil {
		return nil, p.analyzeErr
	}
	return &book.BookAnalysis{BookIndex: &entity.BookIndex{BookID: bookID, Status: entity.BookIndexStatusPending}}, nil
}

func (p *fakePipeline) AnalyzeBookChapters(_ context.Context, bookID string, _ bool) (*book.BatchAnalysisResult, error) {
	p.batchCalled = true
	return &book.BatchAnalysisResult{BookID: bookID}, nil
}

type mapRegistrar map[string]messaging.MessageHandler

func (r mapRegistrar) RegisterHandler(msgType string, h messaging.MessageHandler) {
	r[msgType] = h
}

func message(t *testing.T, msgType string, payload any) *messaging.Message {
	t.Helper()
	msg, err := messaging.NewMessage("job-1", msgType, "", payload)
	require.NoError(t, err)
	return msg
}

func TestRegisterCoversAllJobTypes(t *testing.T) {
	r := mapRegistrar{}
	NewJobs(&fakePipeline{}).Register(r)

	assert.Contains(t, r, messaging.JobTypeBookGenerate)
	assert.Contains(t, r, messaging.JobTypeChapterAnalyze)
	assert.Contains(t, r, messaging.JobTypeBookAnalyze)
}

func TestBookGenerateForwardsRequest(t *testing.T) {
	p := &fakePipeline{}
	jobs := NewJobs(p)

	err := jobs.BookGenerate(context.Background(), message(t, messaging.JobTypeBookGenerate, &messaging.BookGenerateJob{
		UserQuery: "a heist", TotalChapters: 4, Genre: "crime",
	}))
	require.NoError(t, err)
	require.Len(t, p.requests, 1)
	assert.Equal(t, book.GenerationRequest{UserQuery: "a heist", TotalChapters: 4, Genre: "crime"}, p.requests[0])
}

func TestBookGenerateRetriesOnlyOutlineFailures(t *testing.T) {
	ctx := context.Background()
	msg := message(t, messaging.JobTypeBookGenerate, &messaging.BookGenerateJob{UserQuery: "q", TotalChapters: 1})

	err := NewJobs(&fakePipeline{createErr: errors.ErrOutlineFailed.WithDetail("timeout")}).BookGenerate(ctx, msg)
	assert.Error(t, err)

	err = NewJobs(&fakePipeline{createErr: errors.ErrDatabaseError}).BookGenerate(ctx, msg)
	assert.NoError(t, err)
}

func TestChapterAnalyzeRetryPolicy(t *testing.T) {
	ctx := context.Background()
	msg := message(t, messaging.JobTypeChapterAnalyze, &messaging.ChapterAnalyzeJob{ChapterID: "c1"})

	p := &fakePipeline{}
	require.NoError(t, NewJobs(p).ChapterAnalyze(ctx, msg))
	assert.Equal(t, []string{"c1"}, p.chapterIDs)

	missing := &fakePipeline{analyzeErr: errors.ErrChapterNotFound.WithDetail("c1")}
	assert.NoError(t, NewJobs(missing).ChapterAnalyze(ctx, msg))

	transient := &fakePipeline{analyzeErr: errors.ErrDatabaseError}
	assert.Error(t, NewJobs(transient).ChapterAnalyze(ctx, msg))
}

func TestBookAnalyzeWithChaptersUsesBatch(t *testing.T) {
	p := &fakePipeline{}
	msg := message(t, messaging.JobTypeBookAnalyze, &messaging.BookAnalyzeJob{BookID: "b1", WithChapters: true})

	require.NoError(t, NewJobs(p).BookAnalyze(context.Background(), msg))
	assert.True(t, p.batchCalled)
}

func TestInvalidPayloadIsAcknowledged(t *testing.T) {
	msg := &messaging.Message{Type: messaging.JobTypeBookAnalyze, Payload: []byte(`"not an object"`)}

	assert.NoError(t, NewJobs(&fakePipeline{}).BookAnalyze(context.Background(), msg))
}
