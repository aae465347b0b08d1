package teleop

import (
	"context"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
)

// LogSink writes commands to the debug log instead of a robot. Handy for
// bench testing a pad without a gateway.
type LogSink struct {
	logger customlog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger customlog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Send logs cmd.
func (s *LogSink) Send(_ context.Context, cmd VelocityCommand) error {
	s.logger.Debugf("cmd_vel linear.x=%.3f angular.z=%.3f", cmd.Linear, cmd.Angular)
	return nil
}
