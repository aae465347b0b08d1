package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
)

// ErrPoolStopped is reported for tasks submitted to a stopped pool.
var ErrPoolStopped = errors.New("processing pool is not running")

// Task is one unit of work. Run receives the pool context, cancelled on Stop.
type Task struct {
	Name string
	Run  func(ctx context.Context) (interface{}, error)
}

// ProcessResult is the result of processing a task
type ProcessResult struct {
	Name     string
	Data     interface{}
	Started  time.Time
	Duration time.Duration
	Error    error
}

// ResultHandler is a function that handles processed results
type ResultHandler func(result *ProcessResult)

// ProcessingPool is a fixed set of workers fed by a bounded queue
type ProcessingPool struct {
	name          string
	workerCount   int
	logger        customlog.Logger
	taskQueue     chan Task
	running       bool
	wg            sync.WaitGroup
	mu            sync.Mutex
	resultHandler ResultHandler
	queueSize     int
	metrics       PoolMetrics
	metricsMu     sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// PoolMetrics tracks metrics for a processing pool
type PoolMetrics struct {
	ProcessedCount    int64 `json:"processed"`
	ErrorCount        int64 `json:"errors"`
	QueuedCount       int64 `json:"queued"`
	DroppedCount      int64 `json:"dropped"`
	LastProcessedTime int64 `json:"last_processed_ns"`
	ProcessingTimeAvg int64 `json:"avg_us"` // in microseconds
	ProcessingTimeMax int64 `json:"max_us"` // in microseconds
}

// NewProcessingPool creates a new processing pool
func NewProcessingPool(
	name string,
	workerCount int,
	queueSize int,
	logger customlog.Logger,
) *ProcessingPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &ProcessingPool{
		name:        name,
		workerCount: workerCount,
		queueSize:   queueSize,
		logger:      logger,
	}
}

// SetResultHandler sets the result handler function
func (p *ProcessingPool) SetResultHandler(handler ResultHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resultHandler = handler
}

// Submit adds a task to the queue without blocking. It reports false when the
// pool is stopped or the queue is full; the task is then discarded.
func (p *ProcessingPool) Submit(task Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		p.logger.Warnf("%s pool not running, discarding task %s", p.name, task.Name)
		p.countDropped()
		return false
	}

	select {
	case p.taskQueue <- task:
		p.metricsMu.Lock()
		p.metrics.QueuedCount++
		p.metricsMu.Unlock()
		return true
	default:
		p.logger.Warnf("%s pool queue is full, discarding task %s", p.name, task.Name)
		p.countDropped()
		return false
	}
}

func (p *ProcessingPool) countDropped() {
	p.metricsMu.Lock()
	p.metrics.DroppedCount++
	p.metricsMu.Unlock()
}

// Start starts the processing pool workers
func (p *ProcessingPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.taskQueue = make(chan Task, p.queueSize)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.running = true
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, p.taskQueue)
	}
}

// Stop stops accepting tasks, lets the workers drain the queue and waits for
// them. Tasks still running see their context cancelled once drain exceeds grace.
func (p *ProcessingPool) Stop(grace time.Duration) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	// Submit holds mu while sending, so closing here cannot race a send.
	close(p.taskQueue)
	cancel := p.cancel
	p.mu.Unlock()

	p.logger.Infof("Stopping %s pool", p.name)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		p.logger.Warnf("%s pool did not drain within %v, cancelling in-flight tasks", p.name, grace)
		cancel()
		<-done
	}
	cancel()

	p.logger.Infof("%s pool stopped", p.name)
	p.logMetrics()
}

// worker processes tasks from the queue
func (p *ProcessingPool) worker(id int, queue <-chan Task) {
	defer p.wg.Done()

	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for task := range queue {
		p.logger.Debugf("%s pool worker %d running task %s", p.name, id, task.Name)

		p.mu.Lock()
		resultHandler := p.resultHandler
		ctx := p.ctx
		p.mu.Unlock()

		startTime := time.Now()
		result, err := task.Run(ctx)
		elapsed := time.Since(startTime)
		processingTime := elapsed.Microseconds()

		p.metricsMu.Lock()
		p.metrics.ProcessedCount++
		p.metrics.LastProcessedTime = time.Now().UnixNano()
		if p.metrics.ProcessingTimeAvg == 0 {
			p.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			p.metrics.ProcessingTimeAvg = (p.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > p.metrics.ProcessingTimeMax {
			p.metrics.ProcessingTimeMax = processingTime
		}
		if err != nil {
			p.metrics.ErrorCount++
		}
		p.metricsMu.Unlock()

		if resultHandler != nil {
			resultHandler(&ProcessResult{
				Name:     task.Name,
				Data:     result,
				Started:  startTime,
				Duration: elapsed,
				Error:    err,
			})
		}
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

// GetMetrics returns a copy of the current metrics
func (p *ProcessingPool) GetMetrics() PoolMetrics {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()

	return p.metrics
}

// logMetrics logs the current metrics
func (p *ProcessingPool) logMetrics() {
	metrics := p.GetMetrics()

	p.logger.Infof("%s pool metrics: processed=%d, errors=%d, dropped=%d, avg_time=%dµs, max_time=%dµs",
		p.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.DroppedCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *ProcessingPool) GetName() string {
	return p.name
}

// GetQueueLength returns the current length of the task queue
func (p *ProcessingPool) GetQueueLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.taskQueue)
}

// GetQueueCapacity returns the capacity of the task queue
func (p *ProcessingPool) GetQueueCapacity() int {
	return p.queueSize
}
