package messaging

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestConsumerConfigDefaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{Stream: StreamBookJobs, Backoff: BackoffConfig{Initial: time.Second, Max: 10 * time.Minute, Multiplier: 2}})

	assert.Equal(t, 5*time.Second, c.cfg.BlockTimeout)
	assert.Equal(t, 30*time.Second, c.cfg.ClaimInterval)
	assert.Equal(t, 3, c.cfg.RetryLimit)
	assert.Equal(t, 20*time.Minute, c.reclaimIdle)

	c = NewConsumer(nil, ConsumerConfig{})
	assert.Equal(t, DefaultBackoffConfig(), c.cfg.Backoff)
	assert.Equal(t, 5*time.Minute, c.reclaimIdle)
}

func TestDecode(t *testing.T) {
	msg, err := NewMessage("job-1", JobTypeBookGenerate, "", &BookGenerateJob{JobID: "job-1", UserQuery: "q", TotalChapters: 2})
	require.NoError(t, err)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	got, err := decode(redis.XMessage{ID: "1-0", Values: map[string]any{"data": string(raw)}})
	require.NoError(t, err)
	assert.Equal(t, JobTypeBookGenerate, got.Type)

	_, err = decode(redis.XMessage{ID: "2-0", Values: map[string]any{}})
	assert.ErrorContains(t, err, "2-0")

	_, err = decode(redis.XMessage{ID: "3-0", Values: map[string]any{"data": "{"}})
	assert.Error(t, err)
}

func TestDispatchSkipsInflight(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{})
	c.inflight.Store("1-0", struct{}{})

	// 已在执行的消息直接返回，不会触碰 redis 客户端
	c.dispatch(context.Background(), redis.XMessage{ID: "1-0"})
	assert.True(t, c.busy("1-0"))
	assert.False(t, c.busy("2-0"))
}

func TestEveryRunsImmediatelyAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- every(ctx, time.Hour, func() {
			if calls.Add(1) == 1 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("every did not return after cancel")
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestStopWithoutStart(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{})
	c.Stop()
}
