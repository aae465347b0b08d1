package teleop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
)

// Trigger decides when a held remote button fires.
type Trigger int

const (
	// TriggerLevel fires on every snapshot the button is pressed in.
	TriggerLevel Trigger = iota
	// TriggerPress fires only on the released -> pressed transition.
	TriggerPress
)

// AxisMap selects the axes feeding each velocity component.
type AxisMap struct {
	Linear  int
	Angular int
}

// ButtonMap selects the button index for every action.
type ButtonMap struct {
	ToggleRunState    int
	GetMode           int
	ClearMissionQueue int
	GetStatus         int
	IncreaseLinear    int
	IncreaseAngular   int
	DecreaseLinear    int
	DecreaseAngular   int
}

// DefaultButtonMap is the Logitech F710 layout.
func DefaultButtonMap() ButtonMap {
	return ButtonMap{
		ToggleRunState:    0,
		GetMode:           1,
		ClearMissionQueue: 2,
		GetStatus:         3,
		IncreaseLinear:    4,
		IncreaseAngular:   5,
		DecreaseLinear:    6,
		DecreaseAngular:   7,
	}
}

func (b ButtonMap) remote(kind RequestKind) int {
	switch kind {
	case ToggleRunState:
		return b.ToggleRunState
	case GetMode:
		return b.GetMode
	case ClearMissionQueue:
		return b.ClearMissionQueue
	default:
		return b.GetStatus
	}
}

func (b ButtonMap) max() int {
	m := 0
	for _, i := range []int{
		b.ToggleRunState, b.GetMode, b.ClearMissionQueue, b.GetStatus,
		b.IncreaseLinear, b.IncreaseAngular, b.DecreaseLinear, b.DecreaseAngular,
	} {
		if i > m {
			m = i
		}
	}
	return m
}

// Options configures a Translator.
type Options struct {
	LinearGain  Gain
	AngularGain Gain
	Step        float64
	Axes        AxisMap
	Buttons     ButtonMap
	// GainAdjustWhenStationary only honours gain buttons while both
	// velocity components computed from the same snapshot are zero.
	GainAdjustWhenStationary bool
	Trigger                  Trigger
}

// TranslatorState is a point-in-time copy of the translator for observers.
type TranslatorState struct {
	Gains        GainState       `json:"gains"`
	Velocity     VelocityCommand `json:"velocity"`
	Snapshots    uint64          `json:"snapshots"`
	Rejected     uint64          `json:"rejected"`
	Emitted      uint64          `json:"emitted"`
	LastSnapshot time.Time       `json:"last_snapshot"`
}

// Translator maps snapshots to velocity and remote requests. OnSnapshot and
// EmitVelocity are meant to be driven by one goroutine (see Loop); State may be
// called from anywhere.
type Translator struct {
	mu           sync.RWMutex
	opts         Options
	gains        GainState
	velocity     VelocityCommand
	prevButtons  []bool
	lastSnapshot time.Time

	dispatcher Dispatcher
	logger     customlog.Logger

	snapshots atomic.Uint64
	rejected  atomic.Uint64
	emitted   atomic.Uint64

	minAxes    int
	minButtons int
}

// NewTranslator validates opts and builds a translator. A nil dispatcher drops
// remote requests.
func NewTranslator(opts Options, dispatcher Dispatcher, logger customlog.Logger) (*Translator, error) {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	if opts.Step <= 0 {
		return nil, fmt.Errorf("gain step must be positive, got %v", opts.Step)
	}
	for name, g := range map[string]Gain{"linear": opts.LinearGain, "angular": opts.AngularGain} {
		if g.Min > g.Max || g.Value < g.Min || g.Value > g.Max {
			return nil, fmt.Errorf("%s gain %v outside [%v, %v]", name, g.Value, g.Min, g.Max)
		}
	}
	if opts.Axes.Linear < 0 || opts.Axes.Angular < 0 {
		return nil, fmt.Errorf("axis indices must not be negative: %+v", opts.Axes)
	}
	if dispatcher == nil {
		dispatcher = DispatcherFunc(func(kind RequestKind) {
			logger.Debugf("No remote client configured, ignoring %s", kind)
		})
	}

	minAxes := opts.Axes.Linear
	if opts.Axes.Angular > minAxes {
		minAxes = opts.Axes.Angular
	}

	return &Translator{
		opts:       opts,
		gains:      GainState{Linear: opts.LinearGain, Angular: opts.AngularGain},
		dispatcher: dispatcher,
		logger:     logger,
		minAxes:    minAxes + 1,
		minButtons: opts.Buttons.max() + 1,
	}, nil
}

// OnSnapshot recomputes the velocity, applies at most one gain step and
// dispatches one request per pressed remote button. Malformed snapshots are
// rejected without touching any state.
func (t *Translator) OnSnapshot(s Snapshot) error {
	if len(s.Axes) < t.minAxes || len(s.Buttons) < t.minButtons {
		t.rejected.Add(1)
		return fmt.Errorf("%w: got %d axes and %d buttons, need at least %d and %d",
			ErrMalformedSnapshot, len(s.Axes), len(s.Buttons), t.minAxes, t.minButtons)
	}
	t.snapshots.Add(1)

	t.mu.Lock()
	t.velocity = VelocityCommand{
		Linear:  t.gains.Linear.Value * s.Axes[t.opts.Axes.Linear],
		Angular: t.gains.Angular.Value * s.Axes[t.opts.Axes.Angular],
	}
	if !t.opts.GainAdjustWhenStationary || t.velocity.IsZero() {
		t.adjustGainsLocked(s)
	}

	var pending []RequestKind
	for _, kind := range RequestKinds {
		idx := t.opts.Buttons.remote(kind)
		if !s.Pressed(idx) {
			continue
		}
		if t.opts.Trigger == TriggerPress && t.wasPressedLocked(idx) {
			continue
		}
		pending = append(pending, kind)
	}
	t.prevButtons = append(t.prevButtons[:0], s.Buttons...)
	t.lastSnapshot = s.Stamp
	t.mu.Unlock()

	// Dispatch outside the lock so State stays responsive when calls block.
	for _, kind := range pending {
		t.dispatcher.Dispatch(kind)
	}
	return nil
}

// adjustGainsLocked applies the first matching gain step in priority order.
func (t *Translator) adjustGainsLocked(s Snapshot) {
	b := t.opts.Buttons
	step := t.opts.Step
	switch {
	case s.Pressed(b.IncreaseLinear) && t.gains.Linear.Increase(step):
		t.logger.Infof("MAX LIN SPEED = %v", t.gains.Linear.Value)
	case s.Pressed(b.DecreaseLinear) && t.gains.Linear.Decrease(step):
		t.logger.Infof("MAX LIN SPEED = %v", t.gains.Linear.Value)
	case s.Pressed(b.IncreaseAngular) && t.gains.Angular.Increase(step):
		t.logger.Infof("MAX ANG SPEED = %v", t.gains.Angular.Value)
	case s.Pressed(b.DecreaseAngular) && t.gains.Angular.Decrease(step):
		t.logger.Infof("MAX ANG SPEED = %v", t.gains.Angular.Value)
	}
}

func (t *Translator) wasPressedLocked(idx int) bool {
	return idx < len(t.prevButtons) && t.prevButtons[idx]
}

// Velocity returns the last computed command.
func (t *Translator) Velocity() VelocityCommand {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.velocity
}

// Gains returns the current gains.
func (t *Translator) Gains() GainState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gains
}

// EmitVelocity sends the most recent command to sink, whether or not a new
// snapshot arrived since the previous emission.
func (t *Translator) EmitVelocity(ctx context.Context, sink Sink) error {
	cmd := t.Velocity()
	if err := sink.Send(ctx, cmd); err != nil {
		return fmt.Errorf("failed to send velocity command: %w", err)
	}
	t.emitted.Add(1)
	return nil
}

// State returns a copy of the translator state.
func (t *Translator) State() TranslatorState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TranslatorState{
		Gains:        t.gains,
		Velocity:     t.velocity,
		Snapshots:    t.snapshots.Load(),
		Rejected:     t.rejected.Load(),
		Emitted:      t.emitted.Load(),
		LastSnapshot: t.lastSnapshot,
	}
}
