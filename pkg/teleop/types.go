// Package teleop turns controller snapshots into velocity commands and remote
// control requests.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedSnapshot is returned for snapshots with too few axes or buttons.
var ErrMalformedSnapshot = errors.New("malformed controller snapshot")

// Snapshot is one reading of the controller: axes in [-1, 1] and button states.
type Snapshot struct {
	Axes    []float64 `json:"axes"`
	Buttons []bool    `json:"buttons"`
	Stamp   time.Time `json:"stamp"`
}

// Pressed reports whether button i is held. Out of range reads as released.
func (s Snapshot) Pressed(i int) bool {
	return i >= 0 && i < len(s.Buttons) && s.Buttons[i]
}

// VelocityCommand is the linear/angular pair sent to the motion controller.
type VelocityCommand struct {
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

// IsZero reports whether both components are exactly zero.
func (v VelocityCommand) IsZero() bool {
	return v.Linear == 0 && v.Angular == 0
}

// RequestKind identifies one of the remote control operations.
type RequestKind int

const (
	ToggleRunState RequestKind = iota
	GetMode
	ClearMissionQueue
	GetStatus
)

// RequestKinds lists every kind in button order.
var RequestKinds = []RequestKind{ToggleRunState, GetMode, ClearMissionQueue, GetStatus}

func (k RequestKind) String() string {
	switch k {
	case ToggleRunState:
		return "ToggleRunState"
	case GetMode:
		return "GetMode"
	case ClearMissionQueue:
		return "ClearMissionQueue"
	case GetStatus:
		return "GetStatus"
	default:
		return fmt.Sprintf("RequestKind(%d)", int(k))
	}
}

// ParseRequestKind is the inverse of String.
func ParseRequestKind(s string) (RequestKind, error) {
	for _, k := range RequestKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown request kind '%s'", s)
}

// Dispatcher issues remote control requests. Implementations own retries,
// timeouts and logging; the translator never looks at the outcome.
type Dispatcher interface {
	Dispatch(kind RequestKind)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(kind RequestKind)

// Dispatch calls f(kind).
func (f DispatcherFunc) Dispatch(kind RequestKind) {
	f(kind)
}

// Sink accepts velocity commands.
type Sink interface {
	Send(ctx context.Context, cmd VelocityCommand) error
}
