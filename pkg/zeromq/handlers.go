package zeromq

import (
	"fmt"
	"time"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/pkg/rosmsg"
	"github.com/open-teleop/joyteleop/pkg/teleop"
)

// SnapshotSubmitter accepts snapshots for the translator. *teleop.Loop
// implements it.
type SnapshotSubmitter interface {
	Submit(s teleop.Snapshot) bool
}

var _ SnapshotSubmitter = (*teleop.Loop)(nil)

// JoyHandler decodes joy messages from the gateway into snapshots.
type JoyHandler struct {
	submitter SnapshotSubmitter
	logger    customlog.Logger
	now       func() time.Time
}

// NewJoyHandler creates a FrameHandler feeding submitter.
func NewJoyHandler(submitter SnapshotSubmitter, logger customlog.Logger) *JoyHandler {
	return &JoyHandler{
		submitter: submitter,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleFrame implements FrameHandler. The frame topic, when present, must
// match the OTT topic inside the envelope.
func (h *JoyHandler) HandleFrame(topic string, data []byte) error {
	env, err := rosmsg.Unwrap(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if topic != "" && topic != env.Topic {
		return fmt.Errorf("%w: frame topic '%s' does not match envelope topic '%s'", ErrInvalidMessage, topic, env.Topic)
	}

	snapshot, err := rosmsg.SnapshotFromEnvelope(env, h.now())
	if err != nil {
		return fmt.Errorf("failed to decode joy message: %w", err)
	}

	if !h.submitter.Submit(snapshot) {
		h.logger.Debugf("Joy snapshot discarded, teleop loop not running")
	}
	return nil
}
