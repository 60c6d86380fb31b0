package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookgen-ai-api/internal/config"
)

func TestNewMessageRoundTripsPayload(t *testing.T) {
	job := &BookAnalyzeJob{JobID: "job-1", BookID: "book-1", WithChapters: true}

	msg, err := NewMessage(job.JobID, JobTypeBookAnalyze, job.BookID, job)
	require.NoError(t, err)
	assert.Equal(t, "book-1", msg.BookID)
	assert.Empty(t, msg.GetMetadata("missing"))

	var decoded BookAnalyzeJob
	require.NoError(t, msg.UnmarshalPayload(&decoded))
	assert.Equal(t, *job, decoded)
}

func TestCalculateBackoffCapsAtMax(t *testing.T) {
	b := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, b.CalculateBackoff(0))
	assert.Equal(t, 4*time.Second, b.CalculateBackoff(2))
	assert.Equal(t, 5*time.Second, b.CalculateBackoff(10))
}

func TestBackoffFromConfigFillsDefaults(t *testing.T) {
	b := BackoffFromConfig(config.BackoffConfig{Initial: 2 * time.Second})

	assert.Equal(t, 2*time.Second, b.Initial)
	assert.Equal(t, time.Minute, b.Max)
	assert.Equal(t, 2.0, b.Multiplier)
}

func TestConsumerGroupPrefix(t *testing.T) {
	assert.Equal(t, ConsumerGroup("bookgen-cg-job-worker"), ConsumerGroupJobWorker.WithPrefix("bookgen-"))
	assert.Equal(t, ConsumerGroupJobWorker, ConsumerGroupJobWorker.WithPrefix(""))
	assert.Equal(t, "dlq:stream:bookgen:jobs", StreamBookJobs.DLQStream())
}
