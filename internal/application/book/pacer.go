package book

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bookgen-ai-api/internal/config"
)

// Pacer 控制相邻两次外部生成调用之间的节奏
type Pacer interface {
	Wait(ctx context.Context) error
}

// 节流模式
const (
	PacingDelay = "delay"
	PacingRate  = "rate"
	PacingRedis = "redis"
	PacingNone  = "none"
)

const defaultPacingInterval = time.Second

// DelayPacer 固定间隔等待
type DelayPacer struct {
	interval time.Duration
}

func NewDelayPacer(interval time.Duration) *DelayPacer {
	return &DelayPacer{interval: interval}
}

func (p *DelayPacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RatePacer 令牌桶节流，进程内共享
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer 每 interval 发放一个令牌，最多积累 burst 个。
// 构造时消耗掉初始令牌，使第一次 Wait 同样受节流约束。
func NewRatePacer(interval time.Duration, burst int) *RatePacer {
	if burst < 1 {
		burst = 1
	}
	l := rate.NewLimiter(rate.Every(interval), burst)
	l.AllowN(time.Now(), burst)
	return &RatePacer{limiter: l}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NoopPacer 不等待，用于测试与离线运行
type NoopPacer struct{}

func (NoopPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}

// NewPacer 按配置构造节流器；redis 模式需要调用方提供分布式实现
func NewPacer(cfg config.PacingConfig, distributed Pacer) (Pacer, error) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPacingInterval
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", PacingDelay:
		return NewDelayPacer(interval), nil
	case PacingRate:
		return NewRatePacer(interval, cfg.Burst), nil
	case PacingRedis:
		if distributed == nil {
			return nil, fmt.Errorf("redis pacing requires a redis client")
		}
		return distributed, nil
	case PacingNone:
		return NoopPacer{}, nil
	default:
		return nil, fmt.Errorf("unknown pacing mode %q", cfg.Mode)
	}
}
