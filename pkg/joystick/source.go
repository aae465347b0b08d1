// Package joystick reads a local game controller and feeds its state to the
// teleop loop.
package joystick

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/0xcafed00d/joystick"
	"github.com/benbjohnson/clock"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/pkg/teleop"
)

const (
	axisScale                = 32767.0
	maxButtons               = 32
	DefaultReconnectInterval = time.Second
)

// Submitter accepts snapshots. *teleop.Loop implements it.
type Submitter interface {
	Submit(s teleop.Snapshot) bool
}

// Opener opens joystick id. joystick.Open is used by default.
type Opener func(id int) (joystick.Joystick, error)

// Options tunes a Source.
type Options struct {
	Device       int
	PollHz       float64
	AutorepeatHz float64
	// Deadzone is a fraction of full travel in [0, 1).
	Deadzone          float64
	ReconnectInterval time.Duration
}

// Source polls a joystick and submits a snapshot whenever its state changes.
// With AutorepeatHz set, the last snapshot is resubmitted at that rate while
// a button is held. Losing the device submits a released, centred snapshot.
type Source struct {
	opts      Options
	open      Opener
	submitter Submitter
	clock     clock.Clock
	logger    customlog.Logger

	js        joystick.Joystick
	last      teleop.Snapshot
	haveLast  bool
	lastEmit  time.Time
	lastOpen  time.Time
	openFails int

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

// NewSource creates a source. A nil opener uses joystick.Open, a nil clock
// the wall clock.
func NewSource(opts Options, open Opener, submitter Submitter, clk clock.Clock, logger customlog.Logger) (*Source, error) {
	if opts.PollHz <= 0 {
		return nil, fmt.Errorf("joystick poll rate must be positive, got %v", opts.PollHz)
	}
	if opts.AutorepeatHz < 0 {
		return nil, fmt.Errorf("joystick autorepeat rate must not be negative, got %v", opts.AutorepeatHz)
	}
	if opts.Deadzone < 0 || opts.Deadzone >= 1 {
		return nil, fmt.Errorf("joystick deadzone must be in [0, 1), got %v", opts.Deadzone)
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if open == nil {
		open = joystick.Open
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &Source{
		opts:      opts,
		open:      open,
		submitter: submitter,
		clock:     clk,
		logger:    logger,
	}, nil
}

// Start opens the device and begins polling. It returns immediately; a
// missing device is retried every ReconnectInterval.
func (s *Source) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	ticker := s.clock.Ticker(periodOf(s.opts.PollHz))

	s.tryOpen()
	go s.run(ctx, ticker)
}

// Stop ends polling and closes the device.
func (s *Source) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if done == nil {
		return
	}
	cancel()
	<-done
}

func (s *Source) run(ctx context.Context, ticker *clock.Ticker) {
	defer close(s.done)
	defer ticker.Stop()
	defer s.closeDevice()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.js == nil {
				if s.clock.Now().Sub(s.lastOpen) >= s.opts.ReconnectInterval {
					s.tryOpen()
				}
				continue
			}
			s.poll()
		}
	}
}

func (s *Source) tryOpen() {
	s.lastOpen = s.clock.Now()
	js, err := s.open(s.opts.Device)
	if err != nil {
		// Log the first failure of a streak, then stay quiet until it recovers.
		if s.openFails == 0 {
			s.logger.Warnf("Couldn't open joystick %d, will retry every %v: %v", s.opts.Device, s.opts.ReconnectInterval, err)
		}
		s.openFails++
		return
	}
	s.openFails = 0
	s.js = js
	s.logger.Infof("Opened joystick %d: %s (%d axes, %d buttons)", s.opts.Device, js.Name(), js.AxisCount(), js.ButtonCount())
}

func (s *Source) closeDevice() {
	if s.js != nil {
		s.js.Close()
		s.js = nil
	}
}

func (s *Source) poll() {
	now := s.clock.Now()

	state, err := s.js.Read()
	if err != nil {
		s.logger.Errorf("Joystick %d read failed, reopening: %v", s.opts.Device, err)
		s.closeDevice()
		s.lastOpen = now
		if s.haveLast {
			s.emit(released(s.last, now), now)
		}
		return
	}

	snap := ToSnapshot(state, s.js.ButtonCount(), s.opts.Deadzone, now)
	switch {
	case !s.haveLast || !sameState(snap, s.last):
		s.emit(snap, now)
	case s.opts.AutorepeatHz > 0 && anyPressed(s.last) && now.Sub(s.lastEmit) >= periodOf(s.opts.AutorepeatHz):
		s.emit(snap, now)
	}
}

func (s *Source) emit(snap teleop.Snapshot, now time.Time) {
	s.last = snap
	s.haveLast = true
	s.lastEmit = now
	if !s.submitter.Submit(snap) {
		s.logger.Debugf("Joystick snapshot discarded, teleop loop not running")
	}
}

// ToSnapshot converts a raw device state into a snapshot.
func ToSnapshot(state joystick.State, buttonCount int, deadzone float64, now time.Time) teleop.Snapshot {
	if buttonCount > maxButtons {
		buttonCount = maxButtons
	}
	if buttonCount < 0 {
		buttonCount = 0
	}
	snap := teleop.Snapshot{
		Axes:    make([]float64, len(state.AxisData)),
		Buttons: make([]bool, buttonCount),
		Stamp:   now,
	}
	for i, raw := range state.AxisData {
		snap.Axes[i] = NormalizeAxis(raw, deadzone)
	}
	for i := range snap.Buttons {
		snap.Buttons[i] = state.Buttons&(1<<uint(i)) != 0
	}
	return snap
}

// NormalizeAxis maps a raw int16 reading to [-1, 1]. The sign is inverted so
// up and left read positive, values inside the deadzone read zero and the
// remaining travel is rescaled to the full range.
func NormalizeAxis(raw int, deadzone float64) float64 {
	v := float64(raw)
	dz := axisScale * deadzone
	switch {
	case v > dz:
		v -= dz
	case v < -dz:
		v += dz
	default:
		return 0
	}
	out := -v / (axisScale * (1 - deadzone))
	return math.Max(-1, math.Min(1, out))
}

func periodOf(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

func sameState(a, b teleop.Snapshot) bool {
	if len(a.Axes) != len(b.Axes) || len(a.Buttons) != len(b.Buttons) {
		return false
	}
	for i := range a.Axes {
		if a.Axes[i] != b.Axes[i] {
			return false
		}
	}
	for i := range a.Buttons {
		if a.Buttons[i] != b.Buttons[i] {
			return false
		}
	}
	return true
}

func anyPressed(s teleop.Snapshot) bool {
	for _, b := range s.Buttons {
		if b {
			return true
		}
	}
	return false
}

func released(s teleop.Snapshot, now time.Time) teleop.Snapshot {
	return teleop.Snapshot{
		Axes:    make([]float64, len(s.Axes)),
		Buttons: make([]bool, len(s.Buttons)),
		Stamp:   now,
	}
}
