package zeromq

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"
	"go.uber.org/multierr"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
)

// Common errors
var (
	ErrServiceClosed  = errors.New("zeromq service is closed")
	ErrInvalidMessage = errors.New("invalid message format")
)

const pollInterval = 100 * time.Millisecond

// FrameHandler receives the topic and body of every inbound message.
type FrameHandler interface {
	HandleFrame(topic string, data []byte) error
}

// HandlerFunc is a function type that implements FrameHandler
type HandlerFunc func(topic string, data []byte) error

// HandleFrame calls the function
func (f HandlerFunc) HandleFrame(topic string, data []byte) error {
	return f(topic, data)
}

// Options configures the sockets of a ZeroMQService.
type Options struct {
	// PublishAddress is bound by the PUB socket. Empty disables publishing.
	PublishAddress string
	// SubscribeAddress is bound by the SUB socket. Empty disables receiving.
	SubscribeAddress string
	// Topics filters the SUB socket; none subscribes to everything.
	Topics []string
}

// MessageReceiver reads multipart [topic, body] messages from a SUB socket.
// The socket is owned by the receive goroutine and closed when it exits.
type MessageReceiver struct {
	socket  *zmq4.Socket
	poller  *zmq4.Poller
	handler FrameHandler
	logger  customlog.Logger
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// newMessageReceiver creates a new MessageReceiver
func newMessageReceiver(ctx *zmq4.Context, opts Options, handler FrameHandler, logger customlog.Logger) (*MessageReceiver, error) {
	socket, err := ctx.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	topics := opts.Topics
	if len(topics) == 0 {
		topics = []string{""}
	}
	for _, topic := range topics {
		if err := socket.SetSubscribe(topic); err != nil {
			socket.Close()
			return nil, fmt.Errorf("failed to subscribe to '%s': %w", topic, err)
		}
	}

	if err := socket.Bind(opts.SubscribeAddress); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", opts.SubscribeAddress, err)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	logger.Infof("MessageReceiver initialized on %s", opts.SubscribeAddress)

	return &MessageReceiver{
		socket:  socket,
		poller:  poller,
		handler: handler,
		logger:  logger,
		stop:    make(chan struct{}),
	}, nil
}

// Start begins the message receiving loop
func (r *MessageReceiver) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || r.stopped {
		return
	}
	r.started = true
	r.wg.Add(1)
	go r.receiveLoop()
}

func (r *MessageReceiver) receiveLoop() {
	defer r.wg.Done()
	defer r.socket.Close()

	r.logger.Infof("MessageReceiver started")

	for {
		select {
		case <-r.stop:
			r.logger.Infof("MessageReceiver stopped")
			return
		default:
		}

		// Poll with a timeout so stop is noticed promptly.
		sockets, err := r.poller.Poll(pollInterval)
		if err != nil {
			r.logger.Warnf("Error polling socket: %v", err)
			continue
		}
		if len(sockets) == 0 {
			continue
		}

		frames, err := r.socket.RecvMessageBytes(0)
		if err != nil {
			r.logger.Warnf("Error receiving message: %v", err)
			continue
		}

		topic, body, err := splitFrames(frames)
		if err != nil {
			r.logger.Warnf("Dropping message: %v", err)
			continue
		}

		if err := r.handler.HandleFrame(topic, body); err != nil {
			r.logger.Warnf("Error handling message on topic '%s': %v", topic, err)
		}
	}
}

// splitFrames accepts [topic, body] or a bare [body].
func splitFrames(frames [][]byte) (string, []byte, error) {
	switch len(frames) {
	case 1:
		return "", frames[0], nil
	case 2:
		return string(frames[0]), frames[1], nil
	default:
		return "", nil, fmt.Errorf("%w: %d frames", ErrInvalidMessage, len(frames))
	}
}

// Stop halts the message receiving loop and waits for it to exit. A receiver
// that never started closes its socket here.
func (r *MessageReceiver) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	started := r.started
	close(r.stop)
	r.mu.Unlock()

	if !started {
		return r.socket.Close()
	}
	r.wg.Wait()
	return nil
}

// MessageSender publishes messages on a PUB socket
type MessageSender struct {
	socket  *zmq4.Socket
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

// newMessageSender creates a new MessageSender
func newMessageSender(ctx *zmq4.Context, address string, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	logger.Infof("MessageSender initialized on %s", address)

	return &MessageSender{
		socket:  socket,
		logger:  logger,
		running: true,
	}, nil
}

// PublishMessage sends a message with the given topic
func (s *MessageSender) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}

	// Topic frame first so SUB prefix filters apply.
	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := s.socket.SendBytes(message, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close cleans up resources
func (s *MessageSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if s.socket == nil {
		return nil
	}
	err := s.socket.Close()
	s.socket = nil
	return err
}

// ZeroMQService owns the ZeroMQ context and the gateway sockets
type ZeroMQService struct {
	ctx      *zmq4.Context
	receiver *MessageReceiver
	sender   *MessageSender
	logger   customlog.Logger
	mu       sync.Mutex
	running  bool
}

// NewZeroMQService creates the sockets named in opts. handler may be nil when
// no subscribe address is given.
func NewZeroMQService(opts Options, handler FrameHandler, logger customlog.Logger) (*ZeroMQService, error) {
	if opts.PublishAddress == "" && opts.SubscribeAddress == "" {
		return nil, errors.New("zeromq service needs a publish or subscribe address")
	}
	if opts.SubscribeAddress != "" && handler == nil {
		return nil, errors.New("zeromq subscribe address given without a frame handler")
	}

	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	s := &ZeroMQService{ctx: ctx, logger: logger}

	if opts.PublishAddress != "" {
		if s.sender, err = newMessageSender(ctx, opts.PublishAddress, logger); err != nil {
			ctx.Term()
			return nil, err
		}
	}

	if opts.SubscribeAddress != "" {
		if s.receiver, err = newMessageReceiver(ctx, opts, handler, logger); err != nil {
			if s.sender != nil {
				s.sender.Close()
			}
			ctx.Term()
			return nil, err
		}
	}

	return s, nil
}

// Start begins the ZeroMQ service
func (s *ZeroMQService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.ctx == nil {
		return ErrServiceClosed
	}

	s.running = true
	s.logger.Infof("Starting ZeroMQ service")

	if s.receiver != nil {
		s.receiver.Start()
	}
	return nil
}

// Stop halts the receiver, closes the sockets and terminates the context.
func (s *ZeroMQService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil
	}

	s.logger.Infof("Stopping ZeroMQ service")
	s.running = false

	var err error
	if s.receiver != nil {
		if cerr := s.receiver.Stop(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close SUB socket: %w", cerr))
		}
	}
	if s.sender != nil {
		if cerr := s.sender.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close PUB socket: %w", cerr))
		}
	}
	if cerr := s.ctx.Term(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("failed to terminate ZMQ context: %w", cerr))
	}
	s.ctx = nil

	s.logger.Infof("ZeroMQ service stopped")
	return err
}

// PublishMessage sends a message with the given topic
func (s *ZeroMQService) PublishMessage(topic string, message []byte) error {
	if s.sender == nil {
		return ErrServiceClosed
	}
	return s.sender.PublishMessage(topic, message)
}
