// Package metrics Prometheus 指标，统一使用 bookgen 命名空间并注册到默认 registry
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookgen"

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

// 生成类调用以分钟计，桶上限放宽到 10 分钟
var (
	httpBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 60, 300}
	stageBuckets = []float64{.5, 1, 5, 10, 30, 60, 120, 300, 600}
	llmBuckets   = []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120}
)

var (
	HTTPRequestsTotal   = counter("http", "requests_total", "HTTP requests by route and status", "method", "path", "status")
	HTTPRequestDuration = histogram("http", "request_duration_seconds", "HTTP request latency", httpBuckets, "method", "path")

	PipelineStageTotal    = counter("pipeline", "stage_total", "Pipeline stage executions", "stage", "status")
	PipelineStageDuration = histogram("pipeline", "stage_duration_seconds", "Pipeline stage latency", stageBuckets, "stage")
	ChaptersTotal         = counter("pipeline", "chapters_total", "Chapters processed by the chapter stage", "result")
	BookIndexTotal        = counter("pipeline", "book_index_total", "Book index writes by resulting status", "status")
	ChapterWordCount      = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "chapter_word_count",
		Help:      "Word count of generated chapters",
		Buckets:   []float64{100, 500, 1000, 2000, 3000, 5000, 8000},
	})

	LLMCallTotal    = counter("llm", "call_total", "Gateway calls by outcome", "provider", "workflow", "status")
	LLMCallDuration = histogram("llm", "call_duration_seconds", "Gateway call latency", llmBuckets, "provider", "workflow")
	LLMTokensUsed   = counter("llm", "tokens_used_total", "Tokens used, reported or estimated", "provider", "workflow")

	QueueMessagesTotal = counter("queue", "messages_total", "Messages handled by the job worker", "type", "status")
	QueueDeadLetters   = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "dead_letters",
		Help:      "Current length of the dead-letter stream",
	}, []string{"stream"})

	CacheRequestsTotal = counter("cache", "requests_total", "Cache lookups by result", "cache", "result")
)

func RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

func RecordStage(stage, status string, durationSeconds float64) {
	PipelineStageTotal.WithLabelValues(stage, status).Inc()
	PipelineStageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordLLMCall tokens 为 0 时只计次数与耗时
func RecordLLMCall(provider, workflow, status string, tokens int, durationSeconds float64) {
	LLMCallTotal.WithLabelValues(provider, workflow, status).Inc()
	LLMCallDuration.WithLabelValues(provider, workflow).Observe(durationSeconds)
	if tokens > 0 {
		LLMTokensUsed.WithLabelValues(provider, workflow).Add(float64(tokens))
	}
}
