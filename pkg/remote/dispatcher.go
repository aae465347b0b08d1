// Package remote turns teleop request kinds into calls on the robot REST API.
package remote

import (
	"context"
	"fmt"
	"time"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/pkg/mir"
	"github.com/open-teleop/joyteleop/pkg/processing"
	"github.com/open-teleop/joyteleop/pkg/teleop"
)

// Client is the remote robot API. *mir.Client implements it.
type Client interface {
	ToggleRunState(ctx context.Context, raw bool) (*mir.Response, error)
	GetMode(ctx context.Context, raw bool) (*mir.Response, error)
	ClearMissionQueue(ctx context.Context, raw bool) (*mir.Response, error)
	GetStatus(ctx context.Context, raw bool) (*mir.Response, error)
}

var _ Client = (*mir.Client)(nil)
var _ teleop.Dispatcher = (*Dispatcher)(nil)

// Options tunes a Dispatcher.
type Options struct {
	// Async queues requests on a worker pool instead of calling inline.
	Async bool
	// Timeout bounds each call. Zero leaves it to the client.
	Timeout     time.Duration
	Raw         bool
	Workers     int
	QueueSize   int
	HistorySize int
}

// Dispatcher issues one client call per request and records the outcome.
// Errors are logged and recorded, never returned to the caller.
type Dispatcher struct {
	client  Client
	opts    Options
	logger  customlog.Logger
	history *ResponseLog
	handler processing.ResultHandler
	pool    *processing.ProcessingPool
}

// NewDispatcher creates a dispatcher. Call Start before Dispatch in async mode.
func NewDispatcher(client Client, opts Options, logger customlog.Logger) *Dispatcher {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	history := NewResponseLog(opts.HistorySize)
	d := &Dispatcher{
		client:  client,
		opts:    opts,
		logger:  logger,
		history: history,
		handler: processing.NewLoggingResultHandler(logger, history).CreateHandlerFunc(),
	}
	if opts.Async {
		d.pool = processing.NewProcessingPool("remote", opts.Workers, opts.QueueSize, logger)
		d.pool.SetResultHandler(d.handler)
	}
	return d
}

// Start launches the worker pool in async mode.
func (d *Dispatcher) Start() {
	if d.pool != nil {
		d.pool.Start()
	}
}

// Stop drains queued requests, cancelling calls that outlive grace.
func (d *Dispatcher) Stop(grace time.Duration) {
	if d.pool != nil {
		d.pool.Stop(grace)
	}
}

// History returns the recorded outcomes.
func (d *Dispatcher) History() *ResponseLog {
	return d.history
}

// Metrics returns pool metrics; zero in sync mode.
func (d *Dispatcher) Metrics() processing.PoolMetrics {
	if d.pool == nil {
		return processing.PoolMetrics{}
	}
	return d.pool.GetMetrics()
}

// Dispatch implements teleop.Dispatcher.
func (d *Dispatcher) Dispatch(kind teleop.RequestKind) {
	task := processing.Task{Name: kind.String(), Run: d.callFunc(kind)}

	if d.pool != nil {
		if !d.pool.Submit(task) {
			d.history.Add(Entry{Kind: task.Name, At: time.Now(), Error: "dropped: remote queue full or stopped"})
		}
		return
	}

	// Inline: the caller waits for the robot, bounded by the timeout.
	start := time.Now()
	data, err := task.Run(context.Background())
	d.handler(&processing.ProcessResult{
		Name:     task.Name,
		Data:     data,
		Started:  start,
		Duration: time.Since(start),
		Error:    err,
	})
}

func (d *Dispatcher) callFunc(kind teleop.RequestKind) func(ctx context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		if d.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
			defer cancel()
		}

		var (
			resp *mir.Response
			err  error
		)
		switch kind {
		case teleop.ToggleRunState:
			resp, err = d.client.ToggleRunState(ctx, d.opts.Raw)
		case teleop.GetMode:
			resp, err = d.client.GetMode(ctx, d.opts.Raw)
		case teleop.ClearMissionQueue:
			resp, err = d.client.ClearMissionQueue(ctx, d.opts.Raw)
		case teleop.GetStatus:
			resp, err = d.client.GetStatus(ctx, d.opts.Raw)
		default:
			return nil, fmt.Errorf("unsupported request kind %s", kind)
		}
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", kind, err)
		}
		return resp, nil
	}
}
