// Package rosmsg encodes and decodes the ROS 2 messages exchanged with the
// gateway: sensor_msgs/msg/Joy in, geometry_msgs/msg/Twist out.
package rosmsg

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-teleop/joyteleop/pkg/teleop"
)

// ROS type names, as registered on the gateway.
const (
	JoyType   = "sensor_msgs/msg/Joy"
	TwistType = "geometry_msgs/msg/Twist"
)

// Time is builtin_interfaces/msg/Time.
type Time struct {
	Sec     int32  `json:"sec"`
	Nanosec uint32 `json:"nanosec"`
}

// TimeFrom converts t to a ROS stamp.
func TimeFrom(t time.Time) Time {
	return Time{Sec: int32(t.Unix()), Nanosec: uint32(t.Nanosecond())}
}

// Time returns the stamp as a time.Time.
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Nanosec))
}

// Header is std_msgs/msg/Header.
type Header struct {
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Joy is sensor_msgs/msg/Joy.
type Joy struct {
	Header  Header    `json:"header"`
	Axes    []float32 `json:"axes"`
	Buttons []int32   `json:"buttons"`
}

// Vector3 is geometry_msgs/msg/Vector3.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist is geometry_msgs/msg/Twist.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// Snapshot converts a Joy message into a controller snapshot. A zero stamp
// is replaced by now.
func (j Joy) Snapshot(now time.Time) teleop.Snapshot {
	s := teleop.Snapshot{
		Axes:    make([]float64, len(j.Axes)),
		Buttons: make([]bool, len(j.Buttons)),
		Stamp:   now,
	}
	for i, a := range j.Axes {
		s.Axes[i] = float64(a)
	}
	for i, b := range j.Buttons {
		s.Buttons[i] = b != 0
	}
	if j.Header.Stamp != (Time{}) {
		s.Stamp = j.Header.Stamp.Time()
	}
	return s
}

// JoyFromSnapshot is the inverse of Joy.Snapshot.
func JoyFromSnapshot(s teleop.Snapshot, frameID string) Joy {
	j := Joy{
		Header:  Header{Stamp: TimeFrom(s.Stamp), FrameID: frameID},
		Axes:    make([]float32, len(s.Axes)),
		Buttons: make([]int32, len(s.Buttons)),
	}
	for i, a := range s.Axes {
		j.Axes[i] = float32(a)
	}
	for i, b := range s.Buttons {
		if b {
			j.Buttons[i] = 1
		}
	}
	return j
}

// TwistFromVelocity maps a velocity command onto linear.x and angular.z.
func TwistFromVelocity(v teleop.VelocityCommand) Twist {
	return Twist{
		Linear:  Vector3{X: v.Linear},
		Angular: Vector3{Z: v.Angular},
	}
}

// Velocity is the inverse of TwistFromVelocity.
func (t Twist) Velocity() teleop.VelocityCommand {
	return teleop.VelocityCommand{Linear: t.Linear.X, Angular: t.Angular.Z}
}

// EncodeJoy serialises j as a little-endian CDR payload.
func EncodeJoy(j Joy) []byte {
	e := newEncoder(16 + len(j.Header.FrameID) + 4*len(j.Axes) + 4*len(j.Buttons) + 8)
	e.int32(j.Header.Stamp.Sec)
	e.uint32(j.Header.Stamp.Nanosec)
	e.string(j.Header.FrameID)
	e.uint32(uint32(len(j.Axes)))
	for _, a := range j.Axes {
		e.float32(a)
	}
	e.uint32(uint32(len(j.Buttons)))
	for _, b := range j.Buttons {
		e.int32(b)
	}
	return e.bytes()
}

// DecodeJoy parses a CDR payload into a Joy message.
func DecodeJoy(data []byte) (Joy, error) {
	var j Joy
	d, err := newDecoder(data)
	if err != nil {
		return j, err
	}
	if j.Header.Stamp.Sec, err = d.int32(); err != nil {
		return j, fmt.Errorf("joy header: %w", err)
	}
	if j.Header.Stamp.Nanosec, err = d.uint32(); err != nil {
		return j, fmt.Errorf("joy header: %w", err)
	}
	if j.Header.FrameID, err = d.string(); err != nil {
		return j, fmt.Errorf("joy frame_id: %w", err)
	}

	n, err := d.sequenceLen()
	if err != nil {
		return j, fmt.Errorf("joy axes: %w", err)
	}
	j.Axes = make([]float32, n)
	for i := range j.Axes {
		if j.Axes[i], err = d.float32(); err != nil {
			return j, fmt.Errorf("joy axes: %w", err)
		}
	}

	if n, err = d.sequenceLen(); err != nil {
		return j, fmt.Errorf("joy buttons: %w", err)
	}
	j.Buttons = make([]int32, n)
	for i := range j.Buttons {
		if j.Buttons[i], err = d.int32(); err != nil {
			return j, fmt.Errorf("joy buttons: %w", err)
		}
	}
	return j, nil
}

// EncodeTwist serialises t as a little-endian CDR payload.
func EncodeTwist(t Twist) []byte {
	e := newEncoder(48)
	for _, v := range []float64{t.Linear.X, t.Linear.Y, t.Linear.Z, t.Angular.X, t.Angular.Y, t.Angular.Z} {
		e.float64(v)
	}
	return e.bytes()
}

// DecodeTwist parses a CDR payload into a Twist message.
func DecodeTwist(data []byte) (Twist, error) {
	var t Twist
	d, err := newDecoder(data)
	if err != nil {
		return t, err
	}
	for _, dst := range []*float64{&t.Linear.X, &t.Linear.Y, &t.Linear.Z, &t.Angular.X, &t.Angular.Y, &t.Angular.Z} {
		if *dst, err = d.float64(); err != nil {
			return t, fmt.Errorf("twist: %w", err)
		}
	}
	return t, nil
}

// JoyJSON is the JSON form of a Joy message used by browser clients:
// {"axes":[...],"buttons":[0,1,...]}.
type JoyJSON struct {
	Axes    []float64 `json:"axes"`
	Buttons []int     `json:"buttons"`
}

// DecodeJoyJSON parses the JSON form into a snapshot stamped now.
func DecodeJoyJSON(data []byte, now time.Time) (teleop.Snapshot, error) {
	var msg JoyJSON
	if err := json.Unmarshal(data, &msg); err != nil {
		return teleop.Snapshot{}, fmt.Errorf("failed to parse joy json: %w", err)
	}
	s := teleop.Snapshot{
		Axes:    msg.Axes,
		Buttons: make([]bool, len(msg.Buttons)),
		Stamp:   now,
	}
	for i, b := range msg.Buttons {
		s.Buttons[i] = b != 0
	}
	return s, nil
}
