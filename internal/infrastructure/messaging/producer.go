package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookgen-ai-api/pkg/logger"
	"bookgen-ai-api/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

const (
	publishAttempts = 3
	publishDelay    = 100 * time.Millisecond
)

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流，网络抖动时按指数退避重试
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := retry.DoWithData(
		func() (string, error) {
			return p.client.XAdd(ctx, &redis.XAddArgs{
				Stream: string(stream),
				MaxLen: p.maxLen,
				Approx: true,
				Values: map[string]any{
					"data": string(data),
				},
			}).Result()
		},
		retry.Context(ctx),
		retry.Attempts(publishAttempts),
		retry.Delay(publishDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn(ctx, "publish retry", "attempt", n+1, "error", err.Error())
		}),
	)
	if err != nil {
		span.RecordError(err)
		metrics.QueueMessagesTotal.WithLabelValues(msg.Type, "publish_failed").Inc()
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.QueueMessagesTotal.WithLabelValues(msg.Type, "published").Inc()
	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishBookGenerate 发布整书生成任务
func (p *Producer) PublishBookGenerate(ctx context.Context, job *BookGenerateJob) (string, error) {
	msg, err := NewMessage(job.JobID, JobTypeBookGenerate, "", job)
	if err != nil {
		return "", err
	}
	msg.SetMetadata("total_chapters", fmt.Sprintf("%d", job.TotalChapters))
	return p.Publish(ctx, StreamBookJobs, msg)
}

// PublishChapterAnalyze 发布章节分析任务
func (p *Producer) PublishChapterAnalyze(ctx context.Context, job *ChapterAnalyzeJob) (string, error) {
	msg, err := NewMessage(job.JobID, JobTypeChapterAnalyze, job.BookID, job)
	if err != nil {
		return "", err
	}
	msg.SetMetadata("chapter_id", job.ChapterID)
	return p.Publish(ctx, StreamBookJobs, msg)
}

// PublishBookAnalyze 发布书籍分析任务
func (p *Producer) PublishBookAnalyze(ctx context.Context, job *BookAnalyzeJob) (string, error) {
	msg, err := NewMessage(job.JobID, JobTypeBookAnalyze, job.BookID, job)
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, StreamBookJobs, msg)
}
