package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"bookgen-ai-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache 命名空间隔离的 JSON 读缓存。name 既是键前缀也是指标标签
type Cache struct {
	client *Client
	name   string
	group  singleflight.Group
}

func NewCache(client *Client, name string) *Cache {
	return &Cache{client: client, name: name}
}

// Key 拼出带命名空间的完整键
func (c *Cache) Key(id string) string {
	return fmt.Sprintf("bookgen:%s:%s", c.name, id)
}

func (c *Cache) count(result string) {
	metrics.CacheRequestsTotal.WithLabelValues(c.name, result).Inc()
}

// GetOrLoad 读穿缓存：命中直接解码；未命中时同键并发只回源一次。
// 回源使用脱离调用方取消的 ctx，避免首个调用方断开拖垮同组其它请求。
func GetOrLoad[T any](ctx context.Context, c *Cache, id string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	key := c.Key(id)
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad", trace.WithAttributes(
		attribute.String("cache.name", c.name),
		attribute.String("cache.key", key),
	))
	defer span.End()

	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.count("hit")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return zero, fmt.Errorf("decode cached %s: %w", key, err)
		}
		return v, nil
	case !errors.Is(err, redis.Nil):
		c.count("error")
		span.RecordError(err)
		return zero, err
	}

	c.count("miss")
	span.SetAttributes(attribute.Bool("cache.hit", false))

	loadCtx := context.WithoutCancel(ctx)
	res, err, shared := c.group.Do(key, func() (any, error) {
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(v); err == nil {
			if err := c.client.rdb.Set(loadCtx, key, b, ttl).Err(); err != nil {
				span.RecordError(err)
			}
		}
		return v, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

// Invalidate 删除指定 id 的缓存
func (c *Cache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.Key(id)
	}
	ctx, span := cacheTracer.Start(ctx, "cache.Invalidate",
		trace.WithAttributes(attribute.Int("cache.key_count", len(keys))))
	defer span.End()

	return c.client.rdb.Del(ctx, keys...).Err()
}
