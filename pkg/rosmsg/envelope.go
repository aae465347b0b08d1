package rosmsg

import (
	"errors"
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/open-teleop/joyteleop/pkg/flatbuffers/open_teleop/message"
	"github.com/open-teleop/joyteleop/pkg/teleop"
)

// OTT topics carried over the gateway link.
const (
	TopicVelocity = "teleop.control.velocity"
	TopicJoy      = "teleop.control.joy"
)

// ErrMalformedEnvelope is returned for bytes that are not an OttMessage.
var ErrMalformedEnvelope = errors.New("malformed OttMessage")

// Envelope is a decoded OttMessage.
type Envelope struct {
	Version     byte
	Topic       string
	ContentType message.ContentType
	Payload     []byte
	Timestamp   time.Time
}

// Wrap builds an OttMessage around payload.
func Wrap(topic string, contentType message.ContentType, payload []byte, ts time.Time) []byte {
	builder := flatbuffers.NewBuilder(64 + len(payload))
	topicOffset := builder.CreateString(topic)
	payloadOffset := builder.CreateByteVector(payload)

	message.OttMessageStart(builder)
	message.OttMessageAddVersion(builder, 1)
	message.OttMessageAddOtt(builder, topicOffset)
	message.OttMessageAddContentType(builder, contentType)
	message.OttMessageAddPayload(builder, payloadOffset)
	message.OttMessageAddTimestampNs(builder, ts.UnixNano())
	builder.Finish(message.OttMessageEnd(builder))

	return builder.FinishedBytes()
}

// Unwrap parses an OttMessage. Offsets pointing outside data yield
// ErrMalformedEnvelope instead of a panic.
func Unwrap(data []byte) (env *Envelope, err error) {
	if len(data) < 8 {
		return nil, ErrMalformedEnvelope
	}
	defer func() {
		if r := recover(); r != nil {
			env, err = nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, r)
		}
	}()

	msg := message.GetRootAsOttMessage(data, 0)
	payload := msg.PayloadBytes()
	env = &Envelope{
		Version:     msg.Version(),
		Topic:       string(msg.Ott()),
		ContentType: msg.ContentType(),
		Payload:     append([]byte(nil), payload...),
		Timestamp:   time.Unix(0, msg.TimestampNs()),
	}
	return env, nil
}

// WrapVelocity encodes v as a Twist on the velocity topic.
func WrapVelocity(v teleop.VelocityCommand, ts time.Time) []byte {
	return Wrap(TopicVelocity, message.ContentTypeROS2_CDR, EncodeTwist(TwistFromVelocity(v)), ts)
}

// SnapshotFromEnvelope decodes a joy envelope with either CDR or JSON content.
func SnapshotFromEnvelope(env *Envelope, now time.Time) (teleop.Snapshot, error) {
	if env.Topic != TopicJoy {
		return teleop.Snapshot{}, fmt.Errorf("unexpected topic '%s'", env.Topic)
	}
	switch env.ContentType {
	case message.ContentTypeROS2_CDR:
		joy, err := DecodeJoy(env.Payload)
		if err != nil {
			return teleop.Snapshot{}, err
		}
		return joy.Snapshot(now), nil
	case message.ContentTypeJSON, message.ContentTypeJSON_COMMAND:
		return DecodeJoyJSON(env.Payload, now)
	default:
		return teleop.Snapshot{}, fmt.Errorf("unsupported content type %s for topic '%s'", env.ContentType, env.Topic)
	}
}
