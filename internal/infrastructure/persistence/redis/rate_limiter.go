package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// slidingWindow 原子地清理过期成员、计数并在有余量时记入本次请求。
// 返回 {allowed, retry_after_ms}；拒绝时 retry_after_ms 为最早成员离开窗口的剩余时间。
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window * 2)
  return {1, 0}
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = window
if oldest[2] then
  wait = tonumber(oldest[2]) + window - now
end
return {0, wait}
`)

// RateLimiter 基于有序集合的滑动窗口限流，HTTP 限流与 LLM 节流共用
type RateLimiter struct {
	client *Client
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow 窗口内未满 limit 时记入并放行
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	allowed, _, err := l.Reserve(ctx, key, limit, window)
	return allowed, err
}

// Reserve 同 Allow，拒绝时额外给出建议等待时长
func (l *RateLimiter) Reserve(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
		attribute.Int64("ratelimit.window_ms", window.Milliseconds()),
	)

	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())
	res, err := slidingWindow.Run(ctx, l.client.rdb, []string{key}, now, window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		span.RecordError(err)
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	allowed := res[0] == 1
	retryAfter := time.Duration(res[1]) * time.Millisecond
	span.SetAttributes(attribute.Bool("ratelimit.allowed", allowed))
	return allowed, retryAfter, nil
}

// BuildRateLimitKey HTTP 限流键：客户端 + 路由模板
func BuildRateLimitKey(clientKey, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", clientKey, endpoint)
}
