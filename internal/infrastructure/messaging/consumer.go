package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bookgen-ai-api/pkg/logger"
	"bookgen-ai-api/pkg/metrics"
)

// MessageHandler 返回错误的消息保持 pending，按退避时间重投
type MessageHandler func(ctx context.Context, msg *Message) error

const (
	readBatch    = 10
	pendingBatch = 20
	readErrPause = time.Second
)

// ConsumerConfig 消费者配置，零值字段使用默认值
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
	// DLQAlertThreshold 大于 0 时每分钟检查死信队列长度
	DLQAlertThreshold int64
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = 5 * time.Second
	}
	if c.ClaimInterval <= 0 {
		c.ClaimInterval = 30 * time.Second
	}
	if c.RetryLimit <= 0 {
		c.RetryLimit = 3
	}
	if c.Backoff.Initial <= 0 {
		c.Backoff = DefaultBackoffConfig()
	}
	return c
}

// Consumer Redis Stream 消费者组成员。
// 新消息、到期重试和接管其他成员的滞留消息分别由独立协程处理，
// inflight 保证同一条消息不会被并发执行。
type Consumer struct {
	rdb         *redis.Client
	cfg         ConsumerConfig
	reclaimIdle time.Duration

	mu       sync.RWMutex
	handlers map[string]MessageHandler
	cancel   context.CancelFunc
	loops    *errgroup.Group

	inflight sync.Map
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		rdb:         client,
		cfg:         cfg,
		reclaimIdle: max(5*time.Minute, 2*cfg.Backoff.Max),
		handlers:    make(map[string]MessageHandler),
	}
}

// RegisterHandler 同一类型重复注册时后者生效
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = handler
}

func (c *Consumer) handler(msgType string) (MessageHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[msgType]
	return h, ok
}

// Start 创建消费者组（已存在则忽略）并启动后台协程
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loops != nil {
		return fmt.Errorf("consumer already running")
	}

	err := c.rdb.XGroupCreateMkStream(ctx, c.stream(), c.group(), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", c.group(), err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.retryLoop(gctx) })
	g.Go(func() error { return c.reclaimLoop(gctx) })
	if c.cfg.DLQAlertThreshold > 0 {
		g.Go(func() error { return c.watchDLQ(gctx) })
	}
	c.cancel, c.loops = cancel, g

	logger.Info(ctx, "consumer started",
		"stream", c.stream(),
		"group", c.group(),
		"consumer", c.cfg.ConsumerName,
	)
	return nil
}

// Stop 取消后台协程并等待正在处理的消息结束
func (c *Consumer) Stop() {
	c.mu.Lock()
	cancel, loops := c.cancel, c.loops
	c.cancel, c.loops = nil, nil
	c.mu.Unlock()

	if loops == nil {
		return
	}
	cancel()
	_ = loops.Wait()
}

func (c *Consumer) stream() string { return string(c.cfg.Stream) }
func (c *Consumer) group() string  { return string(c.cfg.Group) }

func (c *Consumer) readLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group(),
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{c.stream(), ">"},
			Count:    readBatch,
			Block:    c.cfg.BlockTimeout,
		}).Result()
		switch {
		case ctx.Err() != nil || errors.Is(err, redis.Nil):
			continue
		case err != nil:
			logger.Error(ctx, "failed to read from stream", err, "stream", c.stream())
			sleep(ctx, readErrPause)
			continue
		}
		for _, s := range res {
			for _, xmsg := range s.Messages {
				c.dispatch(ctx, xmsg)
			}
		}
	}
	return nil
}

// retryLoop 重投本成员名下退避期已过的消息，超过重试上限的移入死信队列
func (c *Consumer) retryLoop(ctx context.Context) error {
	return every(ctx, c.cfg.BlockTimeout, func() {
		for _, p := range c.pending(ctx, c.cfg.ConsumerName) {
			if c.busy(p.ID) {
				continue
			}
			retries := int(p.RetryCount)
			if retries >= c.cfg.RetryLimit {
				c.deadLetterPending(ctx, p.ID, 0)
				continue
			}
			if wait := c.cfg.Backoff.CalculateBackoff(retries); p.Idle >= wait {
				c.redeliver(ctx, p.ID, wait)
			}
		}
	})
}

// reclaimLoop 接管其他成员长时间未确认的消息（成员崩溃或被下线）
func (c *Consumer) reclaimLoop(ctx context.Context) error {
	return every(ctx, c.cfg.ClaimInterval, func() {
		for _, p := range c.pending(ctx, "") {
			if p.Consumer == c.cfg.ConsumerName || p.Idle < c.reclaimIdle {
				continue
			}
			if int(p.RetryCount) >= c.cfg.RetryLimit {
				c.deadLetterPending(ctx, p.ID, c.reclaimIdle)
				continue
			}
			c.redeliver(ctx, p.ID, c.reclaimIdle)
		}
	})
}

func (c *Consumer) watchDLQ(ctx context.Context) error {
	dlq := c.cfg.Stream.DLQStream()
	return every(ctx, time.Minute, func() {
		n, err := c.rdb.XLen(ctx, dlq).Result()
		if err != nil {
			return
		}
		metrics.QueueDeadLetters.WithLabelValues(dlq).Set(float64(n))
		if n > c.cfg.DLQAlertThreshold {
			logger.Warn(ctx, "DLQ has pending messages", "stream", dlq, "count", n)
		}
	})
}

// pending consumer 为空时查询整个消费者组
func (c *Consumer) pending(ctx context.Context, consumer string) []redis.XPendingExt {
	entries, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   c.stream(),
		Group:    c.group(),
		Start:    "-",
		End:      "+",
		Count:    pendingBatch,
		Consumer: consumer,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) && ctx.Err() == nil {
		logger.Error(ctx, "failed to query pending messages", err, "stream", c.stream())
	}
	return entries
}

func (c *Consumer) claim(ctx context.Context, id string, minIdle time.Duration) []redis.XMessage {
	msgs, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream(),
		Group:    c.group(),
		Consumer: c.cfg.ConsumerName,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
	if err != nil && ctx.Err() == nil {
		logger.Error(ctx, "failed to claim pending message", err, "message_id", id)
	}
	return msgs
}

func (c *Consumer) redeliver(ctx context.Context, id string, minIdle time.Duration) {
	for _, xmsg := range c.claim(ctx, id, minIdle) {
		c.dispatch(ctx, xmsg)
	}
}

func (c *Consumer) deadLetterPending(ctx context.Context, id string, minIdle time.Duration) {
	for _, xmsg := range c.claim(ctx, id, minIdle) {
		if msg, err := decode(xmsg); err == nil {
			c.deadLetter(ctx, msg, fmt.Errorf("message exceeded %d retries", c.cfg.RetryLimit))
		}
		c.ack(ctx, xmsg.ID)
	}
}

// busy 报告消息是否正在本进程内执行
func (c *Consumer) busy(id string) bool {
	_, ok := c.inflight.Load(id)
	return ok
}

// dispatch 执行一条消息；处理成功、无法解码或无处理器时确认，失败时留待重试
func (c *Consumer) dispatch(ctx context.Context, xmsg redis.XMessage) {
	if _, loaded := c.inflight.LoadOrStore(xmsg.ID, struct{}{}); loaded {
		return
	}
	defer c.inflight.Delete(xmsg.ID)

	ctx, span := tracer.Start(ctx, "consumer.dispatch", trace.WithAttributes(
		attribute.String("stream", c.stream()),
		attribute.String("stream.message_id", xmsg.ID),
	))
	defer span.End()

	msg, err := decode(xmsg)
	if err != nil {
		logger.Error(ctx, "dropping undecodable message", err, "message_id", xmsg.ID)
		metrics.QueueMessagesTotal.WithLabelValues("unknown", "invalid").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}

	ctx = jobContext(ctx, msg)
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
		attribute.String("book_id", msg.BookID),
	)

	h, ok := c.handler(msg.Type)
	if !ok {
		logger.Warn(ctx, "no handler for message type", "type", msg.Type)
		metrics.QueueMessagesTotal.WithLabelValues(msg.Type, "unhandled").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}

	if err := h(ctx, msg); err != nil {
		span.RecordError(err)
		metrics.QueueMessagesTotal.WithLabelValues(msg.Type, "failed").Inc()
		c.onFailure(ctx, xmsg.ID, msg, err)
		return
	}
	metrics.QueueMessagesTotal.WithLabelValues(msg.Type, "processed").Inc()
	c.ack(ctx, xmsg.ID)
}

// jobContext 把任务标识写入日志上下文
func jobContext(ctx context.Context, msg *Message) context.Context {
	ctx = logger.WithContext(ctx, logger.JobIDKey, msg.ID)
	if msg.BookID != "" {
		ctx = logger.WithContext(ctx, logger.BookIDKey, msg.BookID)
	}
	if reqID := msg.GetMetadata("request_id"); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	return ctx
}

func (c *Consumer) onFailure(ctx context.Context, streamID string, msg *Message, cause error) {
	deliveries := c.deliveries(ctx, streamID)
	if deliveries < c.cfg.RetryLimit {
		logger.Error(ctx, "handler failed, message left pending", cause, "deliveries", deliveries)
		return
	}
	logger.Error(ctx, "handler failed, moving message to DLQ", cause, "deliveries", deliveries)
	c.deadLetter(ctx, msg, cause)
	c.ack(ctx, streamID)
}

// deliveries 读取 XPENDING 记录的投递次数，查询失败按 0 处理
func (c *Consumer) deliveries(ctx context.Context, streamID string) int {
	entries, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream(),
		Group:  c.group(),
		Start:  streamID,
		End:    streamID,
		Count:  1,
	}).Result()
	if err != nil || len(entries) == 0 {
		return 0
	}
	return int(entries[0].RetryCount)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, c.stream(), c.group(), id).Err(); err != nil {
		logger.Error(ctx, "failed to ack message", err, "message_id", id)
	}
}

// DeadLetter 死信队列条目
type DeadLetter struct {
	OriginalStream string   `json:"original_stream"`
	Message        *Message `json:"data"`
	Error          string   `json:"error"`
	FailedAt       int64    `json:"failed_at"`
}

func (c *Consumer) deadLetter(ctx context.Context, msg *Message, cause error) {
	entry, err := json.Marshal(DeadLetter{
		OriginalStream: c.stream(),
		Message:        msg,
		Error:          cause.Error(),
		FailedAt:       time.Now().Unix(),
	})
	if err != nil {
		logger.Error(ctx, "failed to encode DLQ entry", err, "message_id", msg.ID)
		return
	}
	if err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream.DLQStream(),
		Values: map[string]any{"data": string(entry)},
	}).Err(); err != nil {
		logger.Error(ctx, "failed to write DLQ entry", err, "message_id", msg.ID)
		return
	}
	metrics.QueueMessagesTotal.WithLabelValues(msg.Type, "dead_lettered").Inc()
}

// decode 还原 stream 条目 data 字段中的消息
func decode(xmsg redis.XMessage) (*Message, error) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("stream entry %s has no data field", xmsg.ID)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", xmsg.ID, err)
	}
	return &msg, nil
}

// every 立即执行一次 fn，之后每隔 interval 执行，ctx 取消时返回 nil
func every(ctx context.Context, interval time.Duration, fn func()) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		fn()
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
