package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/open-teleop/joyteleop/pkg/api"
	"github.com/open-teleop/joyteleop/pkg/config"
	"github.com/open-teleop/joyteleop/pkg/joystick"
	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/pkg/mir"
	"github.com/open-teleop/joyteleop/pkg/remote"
	"github.com/open-teleop/joyteleop/pkg/rosmsg"
	"github.com/open-teleop/joyteleop/pkg/teleop"
	"github.com/open-teleop/joyteleop/pkg/zeromq"
	"github.com/open-teleop/joyteleop/services"
)

const shutdownTimeout = 5 * time.Second

// RunCmd runs the teleop loop until SIGINT or SIGTERM.
type RunCmd struct {
	AccessLog bool `help:"Log every HTTP request."`
}

// submitFunc lets the gateway handler be built before the loop it feeds.
type submitFunc func(s teleop.Snapshot) bool

func (f submitFunc) Submit(s teleop.Snapshot) bool { return f(s) }

func profilePath(configDir string, bootstrap *config.BootstrapConfig) string {
	path := bootstrap.TeleopConfigPath()
	if !filepath.IsAbs(path) {
		path = filepath.Join(configDir, path)
	}
	return path
}

func (r *RunCmd) Run(g *Globals) (err error) {
	bootstrap, err := config.LoadBootstrapConfig(g.ConfigDir)
	if err != nil {
		return err
	}

	level := bootstrap.Logging.Level
	if g.LogLevel != "" {
		level = g.LogLevel
	}
	logger, err := customlog.NewLogrusLogger(level, bootstrap.Logging.LogPath)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger.Infof("Starting joyteleop (input=%s, sink=%s)", bootstrap.Input.Type, bootstrap.Sink.Type)

	configService, err := services.NewTeleopConfigService(profilePath(g.ConfigDir, bootstrap), logger.WithField("component", "config"))
	if err != nil {
		return err
	}
	profile := configService.GetCurrentConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Remote control
	var (
		dispatcher teleop.Dispatcher
		history    api.RemoteHistory
		remoteD    *remote.Dispatcher
	)
	if bootstrap.Remote.Enabled {
		rc := bootstrap.Remote
		timeout := time.Duration(rc.TimeoutMs) * time.Millisecond
		client := mir.NewClient(rc.Host, rc.Username, rc.Password, timeout, logger.WithField("component", "mir"))
		remoteD = remote.NewDispatcher(client, remote.Options{
			Async:       rc.Async,
			Timeout:     timeout,
			Raw:         rc.Raw,
			Workers:     rc.Workers,
			QueueSize:   rc.QueueSize,
			HistorySize: rc.HistorySize,
		}, logger.WithField("component", "remote"))
		remoteD.Start()
		dispatcher, history = remoteD, remoteD
		logger.Infof("Remote control enabled for %s (async=%t)", client.BaseURL(), rc.Async)
	} else {
		logger.Infof("Remote control disabled")
	}

	translator, err := teleop.NewTranslator(services.TranslatorOptions(profile), dispatcher, logger.WithField("component", "teleop"))
	if err != nil {
		return fmt.Errorf("failed to build translator: %w", err)
	}

	// Gateway link, shared by the zeromq sink and the zeromq input.
	var (
		loop *teleop.Loop
		zmq  *zeromq.ZeroMQService
	)
	zmqOpts := zeromq.Options{Topics: []string{rosmsg.TopicJoy}}
	var frameHandler zeromq.FrameHandler
	if bootstrap.Sink.Type == config.SinkZeroMQ {
		zmqOpts.PublishAddress = bootstrap.ZeroMQ.VelocityPublishAddress
	}
	if bootstrap.Input.Type == config.InputZeroMQ {
		zmqOpts.SubscribeAddress = bootstrap.ZeroMQ.JoySubscribeAddress
		frameHandler = zeromq.NewJoyHandler(submitFunc(func(s teleop.Snapshot) bool { return loop.Submit(s) }), logger.WithField("component", "gateway"))
	}
	if zmqOpts.PublishAddress != "" || zmqOpts.SubscribeAddress != "" {
		zmq, err = zeromq.NewZeroMQService(zmqOpts, frameHandler, logger.WithField("component", "zeromq"))
		if err != nil {
			return err
		}
	}

	var sink teleop.Sink = teleop.NewLogSink(logger.WithField("component", "sink"))
	if bootstrap.Sink.Type == config.SinkZeroMQ {
		sink = zeromq.NewVelocityPublisher(zmq, logger.WithField("component", "sink"))
	}

	loop = teleop.NewLoop(translator, sink, profile.Teleop.TickHz, nil, logger.WithField("component", "loop"))
	loop.Start(ctx)

	if zmq != nil {
		if err := zmq.Start(); err != nil {
			loop.Stop()
			return multierr.Append(err, zmq.Stop())
		}
	}

	var source *joystick.Source
	if bootstrap.Input.Type == config.InputJoystick {
		in := bootstrap.Input
		source, err = joystick.NewSource(joystick.Options{
			Device:            in.Device,
			PollHz:            in.PollHz,
			AutorepeatHz:      in.AutorepeatHz,
			Deadzone:          in.Deadzone,
			ReconnectInterval: time.Duration(in.ReconnectMs) * time.Millisecond,
		}, nil, loop, nil, logger.WithField("component", "joystick"))
		if err != nil {
			loop.Stop()
			if zmq != nil {
				err = multierr.Append(err, zmq.Stop())
			}
			return err
		}
		source.Start(ctx)
	}

	appOpts := api.Options{
		Status:        loop,
		Remote:        history,
		ConfigService: configService,
		AccessLog:     r.AccessLog,
		Logger:        logger.WithField("component", "api"),
	}
	if bootstrap.Input.Type == config.InputWebSocket {
		appOpts.Submitter = loop
	}
	app := api.NewApp(appOpts)

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", bootstrap.Server.HTTPPort)
		logger.Infof("HTTP server listening on %s", addr)
		serverErr <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Infof("Shutting down...")
	case err = <-serverErr:
		logger.Errorf("HTTP server failed: %v", err)
		err = fmt.Errorf("http server: %w", err)
	}

	// Inputs first, then the loop, then a final stop command.
	if source != nil {
		source.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := app.ShutdownWithContext(shutdownCtx); serr != nil {
		err = multierr.Append(err, fmt.Errorf("http shutdown: %w", serr))
	}
	loop.Stop()
	if serr := sink.Send(shutdownCtx, teleop.VelocityCommand{}); serr != nil {
		logger.Warnf("Failed to send final stop command: %v", serr)
	}
	if remoteD != nil {
		remoteD.Stop(time.Duration(bootstrap.Remote.TimeoutMs) * time.Millisecond)
	}
	if zmq != nil {
		err = multierr.Append(err, zmq.Stop())
	}

	logger.Infof("joyteleop exited")
	return err
}
