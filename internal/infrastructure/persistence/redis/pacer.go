package redis

import (
	"context"
	"time"
)

const (
	defaultPacerKey = "pacing:llm"
	minPacerBackoff = 10 * time.Millisecond
)

// Pacer 跨进程 LLM 调用节流：所有 worker 共享同一窗口，每个 interval 内最多放行 burst 次
type Pacer struct {
	limiter  *RateLimiter
	key      string
	limit    int
	interval time.Duration
}

func NewPacer(limiter *RateLimiter, key string, interval time.Duration, burst int) *Pacer {
	if key == "" {
		key = defaultPacerKey
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Pacer{limiter: limiter, key: key, limit: max(burst, 1), interval: interval}
}

// Wait 阻塞到窗口出现余量；按脚本给出的剩余时间睡眠而不是轮询
func (p *Pacer) Wait(ctx context.Context) error {
	for {
		ok, retryAfter, err := p.limiter.Reserve(ctx, p.key, p.limit, p.interval)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(max(retryAfter, minPacerBackoff))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
