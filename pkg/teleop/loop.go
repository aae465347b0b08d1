package teleop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	customlog "github.com/open-teleop/joyteleop/pkg/log"
)

// DefaultInboxSize bounds the snapshots waiting for the loop.
const DefaultInboxSize = 64

// Loop owns a Translator and drives both triggers from one goroutine:
// snapshots submitted by input sources, and a fixed-rate emission tick.
type Loop struct {
	translator *Translator
	sink       Sink
	clock      clock.Clock
	period     time.Duration
	inbox      chan Snapshot
	logger     customlog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	dropped atomic.Uint64
}

// NewLoop creates a loop emitting at tickHz. A nil clock uses the wall clock.
func NewLoop(translator *Translator, sink Sink, tickHz float64, clk clock.Clock, logger customlog.Logger) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &Loop{
		translator: translator,
		sink:       sink,
		clock:      clk,
		period:     time.Duration(float64(time.Second) / tickHz),
		inbox:      make(chan Snapshot, DefaultInboxSize),
		logger:     logger,
	}
}

// Translator returns the translator owned by the loop.
func (l *Loop) Translator() *Translator {
	return l.translator
}

// Submit queues a snapshot without blocking. When the inbox is full the
// oldest pending snapshot is discarded. Reports false if the loop is stopped.
func (l *Loop) Submit(s Snapshot) bool {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if !running {
		return false
	}

	for {
		select {
		case l.inbox <- s:
			return true
		default:
		}
		select {
		case <-l.inbox:
			if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
				l.logger.Warnf("Snapshot inbox full, dropped %d stale snapshots so far", n)
			}
		default:
		}
	}
}

// Dropped returns how many snapshots were discarded because the inbox was full.
func (l *Loop) Dropped() uint64 {
	return l.dropped.Load()
}

// LoopStatus is what the loop reports to observers.
type LoopStatus struct {
	Running          bool            `json:"running"`
	Period           time.Duration   `json:"period_ns"`
	Pending          int             `json:"pending_snapshots"`
	DroppedSnapshots uint64          `json:"dropped_snapshots"`
	Translator       TranslatorState `json:"translator"`
}

// Status returns a point-in-time view of the loop and its translator.
func (l *Loop) Status() LoopStatus {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	return LoopStatus{
		Running:          running,
		Period:           l.period,
		Pending:          len(l.inbox),
		DroppedSnapshots: l.dropped.Load(),
		Translator:       l.translator.State(),
	}
}

// Start launches the loop goroutine. The emission ticker exists once Start returns.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := l.clock.Ticker(l.period)
	l.cancel = cancel
	l.running = true
	l.wg.Add(1)

	l.logger.Infof("Teleop loop started, emitting every %v", l.period)
	go l.run(ctx, ticker)
}

// Stop cancels the loop and waits for it to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancel
	l.mu.Unlock()

	cancel()
	l.wg.Wait()
	l.logger.Infof("Teleop loop stopped")
}

func (l *Loop) run(ctx context.Context, ticker *clock.Ticker) {
	defer l.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-l.inbox:
			if err := l.translator.OnSnapshot(s); err != nil {
				l.logger.Warnf("Rejected controller snapshot: %v", err)
			}
		case <-ticker.C:
			if err := l.translator.EmitVelocity(ctx, l.sink); err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Errorf("Velocity emission failed: %v", err)
			}
		}
	}
}
