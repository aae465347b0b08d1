package zeromq

import (
	"context"
	"time"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/pkg/rosmsg"
	"github.com/open-teleop/joyteleop/pkg/teleop"
)

// Publisher is the outbound half of the gateway link.
type Publisher interface {
	PublishMessage(topic string, message []byte) error
}

var _ Publisher = (*ZeroMQService)(nil)
var _ teleop.Sink = (*VelocityPublisher)(nil)

// VelocityPublisher sends velocity commands to the gateway as Twist messages
// wrapped in an OttMessage on the velocity topic.
type VelocityPublisher struct {
	publisher Publisher
	logger    customlog.Logger
	now       func() time.Time
}

// NewVelocityPublisher creates a new publisher for velocity commands
func NewVelocityPublisher(publisher Publisher, logger customlog.Logger) *VelocityPublisher {
	return &VelocityPublisher{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Send implements teleop.Sink.
func (p *VelocityPublisher) Send(ctx context.Context, v teleop.VelocityCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.publisher.PublishMessage(rosmsg.TopicVelocity, rosmsg.WrapVelocity(v, p.now()))
}
