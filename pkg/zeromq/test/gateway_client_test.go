package test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/joyteleop/pkg/flatbuffers/open_teleop/message"
	"github.com/open-teleop/joyteleop/pkg/rosmsg"
)

// These tests play the gateway against a running joyteleop and are meant to
// be run manually: JOYTELEOP_GATEWAY_TEST=1 go test ./pkg/zeromq/test/
func requireGateway(t *testing.T) {
	if os.Getenv("JOYTELEOP_GATEWAY_TEST") == "" {
		t.Skip("set JOYTELEOP_GATEWAY_TEST=1 with joyteleop running to exercise the gateway link")
	}
}

// TestPublishJoy sends a few joy messages with the linear axis pushed forward.
func TestPublishJoy(t *testing.T) {
	requireGateway(t)

	ctx, err := zmq4.NewContext()
	if err != nil {
		t.Fatalf("Failed to create ZMQ context: %v", err)
	}
	defer ctx.Term()

	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		t.Fatalf("Failed to create PUB socket: %v", err)
	}
	defer socket.Close()
	socket.SetLinger(0)

	if err := socket.Connect("tcp://localhost:5557"); err != nil {
		t.Fatalf("Failed to connect to joyteleop: %v", err)
	}

	// Give the subscription time to propagate.
	time.Sleep(500 * time.Millisecond)

	for i := 0; i < 10; i++ {
		joy := rosmsg.Joy{
			Header:  rosmsg.Header{Stamp: rosmsg.TimeFrom(time.Now()), FrameID: "joy"},
			Axes:    []float32{0, 0.5, 0, 0},
			Buttons: make([]int32, 8),
		}
		data := rosmsg.Wrap(rosmsg.TopicJoy, message.ContentTypeROS2_CDR, rosmsg.EncodeJoy(joy), time.Now())

		if _, err := socket.Send(rosmsg.TopicJoy, zmq4.SNDMORE); err != nil {
			t.Fatalf("Failed to send topic: %v", err)
		}
		if _, err := socket.SendBytes(data, 0); err != nil {
			t.Fatalf("Failed to send joy: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	fmt.Println("Sent 10 joy messages")
}

// TestSubscribeVelocity prints velocity commands published by joyteleop.
func TestSubscribeVelocity(t *testing.T) {
	requireGateway(t)

	ctx, err := zmq4.NewContext()
	if err != nil {
		t.Fatalf("Failed to create ZMQ context: %v", err)
	}
	defer ctx.Term()

	socket, err := ctx.NewSocket(zmq4.SUB)
	if err != nil {
		t.Fatalf("Failed to create SUB socket: %v", err)
	}
	defer socket.Close()
	socket.SetLinger(0)

	if err := socket.Connect("tcp://localhost:5556"); err != nil {
		t.Fatalf("Failed to connect to joyteleop: %v", err)
	}
	if err := socket.SetSubscribe(rosmsg.TopicVelocity); err != nil {
		t.Fatalf("Failed to set subscription: %v", err)
	}
	socket.SetRcvtimeo(time.Second)

	received := 0
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		frames, err := socket.RecvMessageBytes(0)
		if err != nil {
			// Timeout, keep waiting
			continue
		}
		if len(frames) != 2 {
			t.Fatalf("Expected 2 frames, got %d", len(frames))
		}

		env, err := rosmsg.Unwrap(frames[1])
		if err != nil {
			t.Fatalf("Failed to unwrap OttMessage: %v", err)
		}
		twist, err := rosmsg.DecodeTwist(env.Payload)
		if err != nil {
			t.Fatalf("Failed to decode Twist: %v", err)
		}

		fmt.Printf("Received %s: linear.x=%v angular.z=%v\n", env.Topic, twist.Linear.X, twist.Angular.Z)
		received++
	}

	if received == 0 {
		t.Errorf("No velocity commands received within 5s")
	}
}
