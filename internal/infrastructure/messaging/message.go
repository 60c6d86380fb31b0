// Package messaging Redis Stream 上的异步任务队列：投递、消费、退避重试与死信
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"bookgen-ai-api/internal/config"
)

// Message 写入 stream data 字段的任务信封，Payload 为具体任务的 JSON
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	BookID    string            `json:"book_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewMessage(id, msgType, bookID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}
	return &Message{ID: id, Type: msgType, BookID: bookID, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}

func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	m.Metadata[key] = value
}

// GetMetadata 读取 nil map 返回空串
func (m *Message) GetMetadata(key string) string {
	return m.Metadata[key]
}

func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// 任务类型
const (
	JobTypeBookGenerate   = "book_generate"
	JobTypeChapterAnalyze = "chapter_analyze"
	JobTypeBookAnalyze    = "book_analyze"
)

// Stream Redis Stream 键
type Stream string

const (
	StreamBookJobs Stream = "stream:bookgen:jobs"
)

func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

type ConsumerGroup string

const (
	ConsumerGroupJobWorker ConsumerGroup = "cg-job-worker"
)

// WithPrefix 按配置前缀生成消费者组名
func (g ConsumerGroup) WithPrefix(prefix string) ConsumerGroup {
	if prefix == "" {
		return g
	}
	return ConsumerGroup(prefix + string(g))
}

type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// BackoffFromConfig 从配置构造退避参数，缺省项使用默认值
func BackoffFromConfig(cfg config.BackoffConfig) BackoffConfig {
	b := DefaultBackoffConfig()
	if cfg.Initial > 0 {
		b.Initial = cfg.Initial
	}
	if cfg.Max > 0 {
		b.Max = cfg.Max
	}
	if cfg.Multiplier >= 1 {
		b.Multiplier = cfg.Multiplier
	}
	return b
}

// CalculateBackoff 第 retryCount 次重投前的等待：Initial*Multiplier^retryCount，不超过 Max
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	d := float64(c.Initial)
	for range retryCount {
		d *= c.Multiplier
		if d >= float64(c.Max) {
			return c.Max
		}
	}
	return time.Duration(d)
}

// BookGenerateJob 整书生成任务
type BookGenerateJob struct {
	JobID         string `json:"job_id"`
	UserQuery     string `json:"user_query"`
	TotalChapters int    `json:"total_chapters"`
	AuthorID      string `json:"author_id,omitempty"`
	Genre         string `json:"genre,omitempty"`
}

// ChapterAnalyzeJob 章节分析任务
type ChapterAnalyzeJob struct {
	JobID     string `json:"job_id"`
	ChapterID string `json:"chapter_id"`
	BookID    string `json:"book_id,omitempty"`
}

// BookAnalyzeJob 书籍分析任务，WithChapters 为 true 时先批量分析章节
type BookAnalyzeJob struct {
	JobID        string `json:"job_id"`
	BookID       string `json:"book_id"`
	WithChapters bool   `json:"with_chapters"`
}
