package processing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	results []*ProcessResult
}

func (c *collector) Record(r *ProcessResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func TestPoolRunsTasksAndReportsResults(t *testing.T) {
	logger := customlog.NewNopLogger()
	pool := NewProcessingPool("remote", 2, 8, logger)
	c := &collector{}
	pool.SetResultHandler(NewLoggingResultHandler(logger, c).CreateHandlerFunc())
	pool.Start()

	failure := errors.New("boom")
	require.True(t, pool.Submit(Task{Name: "ok", Run: func(context.Context) (interface{}, error) {
		return map[string]int{"state_id": 3}, nil
	}}))
	require.True(t, pool.Submit(Task{Name: "fail", Run: func(context.Context) (interface{}, error) {
		return nil, failure
	}}))

	pool.Stop(time.Second)

	require.Equal(t, 2, c.len())
	m := pool.GetMetrics()
	assert.Equal(t, int64(2), m.ProcessedCount)
	assert.Equal(t, int64(1), m.ErrorCount)
	assert.Equal(t, int64(2), m.QueuedCount)
}

func TestPoolDropsWhenFull(t *testing.T) {
	pool := NewProcessingPool("remote", 1, 1, customlog.NewNopLogger())
	pool.Start()

	block := make(chan struct{})
	started := make(chan struct{})
	require.True(t, pool.Submit(Task{Name: "slow", Run: func(context.Context) (interface{}, error) {
		close(started)
		<-block
		return nil, nil
	}}))
	<-started

	noop := Task{Name: "noop", Run: func(context.Context) (interface{}, error) { return nil, nil }}
	assert.True(t, pool.Submit(noop), "queue has one free slot")
	assert.False(t, pool.Submit(noop), "queue is full")
	assert.Equal(t, 1, pool.GetQueueLength())

	close(block)
	pool.Stop(time.Second)
	assert.Equal(t, int64(1), pool.GetMetrics().DroppedCount)
}

func TestPoolStopCancelsStuckTasks(t *testing.T) {
	pool := NewProcessingPool("remote", 1, 1, customlog.NewNopLogger())
	pool.Start()

	started := make(chan struct{})
	var sawCancel bool
	require.True(t, pool.Submit(Task{Name: "hung", Run: func(ctx context.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		sawCancel = true
		return nil, ctx.Err()
	}}))
	<-started

	pool.Stop(20 * time.Millisecond)
	assert.True(t, sawCancel)
	assert.False(t, pool.Submit(Task{Name: "late", Run: func(context.Context) (interface{}, error) { return nil, nil }}))
}

func TestPoolRestart(t *testing.T) {
	pool := NewProcessingPool("remote", 1, 4, customlog.NewNopLogger())
	c := &collector{}
	pool.SetResultHandler(func(r *ProcessResult) { c.Record(r) })

	for i := 0; i < 2; i++ {
		pool.Start()
		require.True(t, pool.Submit(Task{Name: "n", Run: func(context.Context) (interface{}, error) { return nil, nil }}))
		pool.Stop(time.Second)
	}
	assert.Equal(t, 2, c.len())
	assert.Equal(t, "remote", pool.GetName())
	assert.Equal(t, 4, pool.GetQueueCapacity())
}
