package zeromq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/joyteleop/pkg/flatbuffers/open_teleop/message"
	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/pkg/rosmsg"
	"github.com/open-teleop/joyteleop/pkg/teleop"
)

type recordingSubmitter struct {
	mu        sync.Mutex
	snapshots []teleop.Snapshot
}

func (r *recordingSubmitter) Submit(s teleop.Snapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	return true
}

type recordingPublisher struct {
	topic string
	data  []byte
	err   error
}

func (p *recordingPublisher) PublishMessage(topic string, data []byte) error {
	p.topic, p.data = topic, data
	return p.err
}

func TestJoyHandlerDecodesCDR(t *testing.T) {
	sub := &recordingSubmitter{}
	h := NewJoyHandler(sub, customlog.NewNopLogger())

	payload := rosmsg.EncodeJoy(rosmsg.Joy{Axes: []float32{0, 0.5, 0, -1}, Buttons: []int32{0, 0, 0, 1}})
	data := rosmsg.Wrap(rosmsg.TopicJoy, message.ContentTypeROS2_CDR, payload, time.Now())

	require.NoError(t, h.HandleFrame(rosmsg.TopicJoy, data))
	require.Len(t, sub.snapshots, 1)
	assert.Equal(t, []float64{0, 0.5, 0, -1}, sub.snapshots[0].Axes)
	assert.Equal(t, []bool{false, false, false, true}, sub.snapshots[0].Buttons)
}

func TestJoyHandlerAcceptsJSONWithoutFrameTopic(t *testing.T) {
	sub := &recordingSubmitter{}
	h := NewJoyHandler(sub, customlog.NewNopLogger())

	data := rosmsg.Wrap(rosmsg.TopicJoy, message.ContentTypeJSON, []byte(`{"axes":[0,1],"buttons":[1]}`), time.Now())

	require.NoError(t, h.HandleFrame("", data))
	require.Len(t, sub.snapshots, 1)
	assert.Equal(t, []bool{true}, sub.snapshots[0].Buttons)
}

func TestJoyHandlerRejectsBadFrames(t *testing.T) {
	sub := &recordingSubmitter{}
	h := NewJoyHandler(sub, customlog.NewNopLogger())

	err := h.HandleFrame(rosmsg.TopicJoy, []byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrInvalidMessage))

	mismatched := rosmsg.Wrap(rosmsg.TopicVelocity, message.ContentTypeROS2_CDR, nil, time.Now())
	err = h.HandleFrame(rosmsg.TopicJoy, mismatched)
	assert.True(t, errors.Is(err, ErrInvalidMessage))

	truncated := rosmsg.Wrap(rosmsg.TopicJoy, message.ContentTypeROS2_CDR, []byte{0, 1, 0, 0, 1}, time.Now())
	err = h.HandleFrame(rosmsg.TopicJoy, truncated)
	assert.ErrorIs(t, err, rosmsg.ErrTruncated)

	assert.Empty(t, sub.snapshots)
}

func TestVelocityPublisherWrapsTwist(t *testing.T) {
	pub := &recordingPublisher{}
	vp := NewVelocityPublisher(pub, customlog.NewNopLogger())

	require.NoError(t, vp.Send(context.Background(), teleop.VelocityCommand{Linear: 0.2, Angular: -0.3}))
	assert.Equal(t, rosmsg.TopicVelocity, pub.topic)

	env, err := rosmsg.Unwrap(pub.data)
	require.NoError(t, err)
	assert.Equal(t, message.ContentTypeROS2_CDR, env.ContentType)

	twist, err := rosmsg.DecodeTwist(env.Payload)
	require.NoError(t, err)
	assert.Equal(t, teleop.VelocityCommand{Linear: 0.2, Angular: -0.3}, twist.Velocity())
}

func TestVelocityPublisherErrors(t *testing.T) {
	vp := NewVelocityPublisher(&recordingPublisher{err: ErrServiceClosed}, customlog.NewNopLogger())
	assert.ErrorIs(t, vp.Send(context.Background(), teleop.VelocityCommand{}), ErrServiceClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, vp.Send(ctx, teleop.VelocityCommand{}), context.Canceled)
}

func TestSplitFrames(t *testing.T) {
	topic, body, err := splitFrames([][]byte{[]byte("a"), []byte("b")})
	require.NoError(t, err)
	assert.Equal(t, "a", topic)
	assert.Equal(t, []byte("b"), body)

	topic, body, err = splitFrames([][]byte{[]byte("only")})
	require.NoError(t, err)
	assert.Empty(t, topic)
	assert.Equal(t, []byte("only"), body)

	_, _, err = splitFrames([][]byte{{1}, {2}, {3}})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
