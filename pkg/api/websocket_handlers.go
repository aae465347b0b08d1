package api

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/pkg/rosmsg"
	"github.com/open-teleop/joyteleop/pkg/teleop"
)

// RegisterJoyWebSocket serves /ws/joy. Text frames carry
// {"axes":[...],"buttons":[0|1,...]}; binary frames carry an OttMessage
// with a Joy payload.
func RegisterJoyWebSocket(app *fiber.App, submitter SnapshotSubmitter, logger customlog.Logger) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/joy", websocket.New(func(conn *websocket.Conn) {
		JoyWebSocketHandler(conn, submitter, logger)
	}))

	logger.Infof("Registered joy WebSocket endpoint at /ws/joy")
}

// JoyWebSocketHandler feeds snapshots from one client into the teleop loop.
// When the client goes away a released snapshot is submitted so the robot
// does not keep the last command.
func JoyWebSocketHandler(conn *websocket.Conn, submitter SnapshotSubmitter, logger customlog.Logger) {
	logger.Infof("Joy WebSocket connected: %s", conn.RemoteAddr())

	var last *teleop.Snapshot
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) &&
				!errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				logger.Errorf("Joy WS read error: %v", err)
			} else {
				logger.Infof("Joy WS connection closed: %v", err)
			}
			break
		}

		snap, err := decodeJoyFrame(mt, msg, time.Now())
		if err != nil {
			logger.Warnf("Ignoring joy WS message: %v", err)
			continue
		}
		if !submitter.Submit(snap) {
			logger.Debugf("Joy snapshot discarded, teleop loop not running")
		}
		last = &snap
	}

	if last != nil {
		submitter.Submit(teleop.Snapshot{
			Axes:    make([]float64, len(last.Axes)),
			Buttons: make([]bool, len(last.Buttons)),
			Stamp:   time.Now(),
		})
	}
	logger.Infof("Joy WebSocket disconnected: %s", conn.RemoteAddr())
}

func decodeJoyFrame(mt int, msg []byte, now time.Time) (teleop.Snapshot, error) {
	switch mt {
	case websocket.TextMessage:
		return rosmsg.DecodeJoyJSON(msg, now)
	case websocket.BinaryMessage:
		env, err := rosmsg.Unwrap(msg)
		if err != nil {
			return teleop.Snapshot{}, err
		}
		return rosmsg.SnapshotFromEnvelope(env, now)
	default:
		return teleop.Snapshot{}, fmt.Errorf("unsupported message type %d", mt)
	}
}
