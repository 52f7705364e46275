// Package session owns the broker connection of the gate panel: its
// lifecycle, the liveness of the gate derived from heartbeats and the
// dispatch of gate commands.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
	"github.com/autopeer-io/gatepanel/internal/pkg/metrics"
	"github.com/autopeer-io/gatepanel/pkg/log"
	"github.com/autopeer-io/gatepanel/pkg/mqtt"
	"github.com/autopeer-io/gatepanel/pkg/mqtt/topic"
	"github.com/autopeer-io/gatepanel/pkg/options"
)

var (
	// ErrNotConnected is reported when a command is sent without a live connection.
	ErrNotConnected = errors.New("not connected to MQTT broker")

	// ErrUnknownCommand is reported for actions outside the gate command set.
	ErrUnknownCommand = errors.New("unknown gate command")
)

// disconnectTimeout bounds the background teardown of a discarded transport.
const disconnectTimeout = 5 * time.Second

// ClientFactory creates the transport for one connection attempt.
type ClientFactory func(cfg *mqtt.ClientConfig) (mqtt.Client, error)

// Metrics receives session observations. metrics.Recorder implements it.
type Metrics interface {
	ObserveStatus(status model.ConnectionStatus)
	ObserveLiveness(liveness model.GateLiveness)
	ObserveHeartbeat(kind string)
	ObserveCommand(action model.GateCommand, result string, took time.Duration)
	ObserveError()
}

// Option configures a Session.
type Option func(*Session)

// WithClientFactory replaces mqtt.NewClient as the transport constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Session) { s.newClient = f }
}

// WithClock sets the clock used to stamp command records.
func WithClock(c clock.PassiveClock) Option {
	return func(s *Session) { s.clock = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session is the single owner of the broker connection.
//
// All state is guarded by mu. Observers are never called with mu held: the
// notifications produced by an operation are queued and dispatched, in order,
// once the operation released the lock.
type Session struct {
	opts      *options.MqttOptions
	topics    *topic.Builder
	newClient ClientFactory
	clock     clock.PassiveClock
	metrics   Metrics

	mu      sync.Mutex
	machine *fsm.FSM
	client  mqtt.Client
	cancel  context.CancelFunc
	// gen identifies the current transport. Events carrying an older
	// generation come from a discarded transport and are dropped.
	gen         uint64
	lastErr     string
	lastCommand *model.CommandRecord
	heartbeat   *model.Heartbeat
	liveness    model.GateLiveness
	pending     []func()

	statusObservers    registry[StatusFunc]
	errorObservers     registry[ErrorFunc]
	heartbeatObservers registry[HeartbeatFunc]
	messageObservers   registry[MessageFunc]

	teardown sync.WaitGroup
}

// New creates a disconnected Session. A nil opts means options.NewMqttOptions().
func New(opts *options.MqttOptions, opt ...Option) *Session {
	if opts == nil {
		opts = options.NewMqttOptions()
	}

	s := &Session{
		opts:      opts,
		topics:    topic.NewBuilder(opts.TopicRoot),
		newClient: mqtt.NewClient,
		clock:     clock.RealClock{},
		metrics:   metrics.Recorder{},
		liveness:  model.LivenessUnknown,
	}
	for _, o := range opt {
		o(s)
	}

	s.machine = s.newMachine()
	s.metrics.ObserveStatus(model.StatusDisconnected)
	s.metrics.ObserveLiveness(model.LivenessUnknown)
	return s
}

// Connect discards the current transport, if any, and starts a new connection
// attempt with creds. It returns as soon as the attempt is under way; the
// outcome is reported through the status and error observers.
func (s *Session) Connect(creds model.Credentials) {
	s.mu.Lock()
	defer s.flush()

	s.detachLocked()
	s.gen++
	gen := s.gen

	if !s.fire(EventConnect) {
		// Already connecting: the status stays, the old attempt's scope does not.
		s.resetScopeLocked()
	}

	clientID := fmt.Sprintf("%s-%s", s.opts.ClientIDPrefix, uuid.NewString()[:8])
	cfg := s.opts.ToClientConfig(clientID, creds.Username, creds.Password)
	cfg.Lifecycle = &transportEvents{session: s, gen: gen}

	log.Info("Connecting to MQTT broker", "broker", s.opts.Broker, "clientID", clientID, "username", creds.Username)

	client, err := s.newClient(cfg)
	if err != nil {
		s.failLocked(err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.client, s.cancel = client, cancel

	if err := client.Subscribe(ctx, s.topics.Status(), 0, s.statusHandler(gen)); err != nil {
		s.failLocked(fmt.Errorf("failed to subscribe to %s: %w", s.topics.Status(), err))
		return
	}
	if err := client.Start(ctx); err != nil {
		s.failLocked(err)
	}
}

// Disconnect tears the connection down. Calling it while disconnected only
// makes sure the connection scope is clear.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.flush()

	s.detachLocked()
	if s.fire(EventDisconnect) {
		log.Info("Disconnected from MQTT broker")
		return
	}
	s.resetScopeLocked()
}

// Close disconnects and waits for discarded transports to finish their teardown.
func (s *Session) Close() {
	s.Disconnect()
	s.teardown.Wait()
}

// SendCommand publishes action on the control topic. It returns true when the
// message was handed to the broker; otherwise an error notification carries
// the reason.
func (s *Session) SendCommand(ctx context.Context, action model.GateCommand) bool {
	s.mu.Lock()
	if !action.Valid() {
		s.raiseLocked(fmt.Sprintf("%v: %q", ErrUnknownCommand, string(action)))
		s.metrics.ObserveCommand("invalid", metrics.ResultRejected, 0)
		s.flush()
		return false
	}
	client, gen := s.client, s.gen
	if s.statusLocked() != model.StatusConnected || client == nil {
		s.raiseLocked(ErrNotConnected.Error())
		s.metrics.ObserveCommand(action, metrics.ResultRejected, 0)
		s.flush()
		return false
	}
	s.mu.Unlock()

	payload, err := json.Marshal(model.ControlMessage{Action: action})
	if err != nil {
		s.mu.Lock()
		s.raiseLocked(fmt.Sprintf("failed to encode command %q: %v", action, err))
		s.flush()
		return false
	}

	pubCtx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
	start := s.clock.Now()
	err = client.Publish(pubCtx, s.topics.Control(), 0, false, payload)
	took := s.clock.Since(start)
	cancel()

	s.mu.Lock()
	defer s.flush()

	if err != nil {
		s.raiseLocked(fmt.Sprintf("failed to send command %q: %v", action, err))
		s.metrics.ObserveCommand(action, metrics.ResultFailed, took)
		return false
	}

	s.metrics.ObserveCommand(action, metrics.ResultSent, took)
	log.Info("Gate command sent", "action", action, "topic", s.topics.Control())

	if gen != s.gen {
		// The connection was replaced while publishing; the record would
		// leak into the new connection's scope.
		return true
	}
	s.lastCommand = &model.CommandRecord{Action: action, IssuedAt: s.clock.Now()}
	return true
}

// Snapshot returns a copy of the observable session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Status:       s.statusLocked(),
		Error:        s.lastErr,
		Liveness:     s.liveness,
		ControlTopic: s.topics.Control(),
		StatusTopic:  s.topics.Status(),
	}
	st.Connected = st.Status == model.StatusConnected
	if s.lastCommand != nil {
		c := *s.lastCommand
		st.LastCommand = &c
	}
	if s.heartbeat != nil {
		h := *s.heartbeat
		st.Heartbeat = &h
	}
	return st
}

// Status returns the current connection status.
func (s *Session) Status() model.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// IsConnected reports whether the status is connected.
func (s *Session) IsConnected() bool {
	return s.Status() == model.StatusConnected
}

// Error returns the last error message, or "" when there is none.
func (s *Session) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Topics returns the topic builder the session publishes and subscribes with.
func (s *Session) Topics() *topic.Builder {
	return s.topics
}

func (s *Session) statusLocked() model.ConnectionStatus {
	return model.ConnectionStatus(s.machine.Current())
}

// flush releases mu and runs the notifications queued while it was held.
func (s *Session) flush() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// detachLocked discards the current transport. Its teardown runs in the
// background and every later event it raises is ignored.
func (s *Session) detachLocked() {
	if s.client == nil {
		return
	}

	client, cancel := s.client, s.cancel
	s.client, s.cancel = nil, nil
	s.gen++

	s.teardown.Add(1)
	go func() {
		defer s.teardown.Done()
		ctx, done := context.WithTimeout(context.Background(), disconnectTimeout)
		defer done()
		client.Disconnect(ctx)
		cancel()
	}()
}

func (s *Session) resetScopeLocked() {
	s.lastCommand = nil
	s.heartbeat = nil
	if s.liveness != model.LivenessUnknown {
		s.liveness = model.LivenessUnknown
		s.metrics.ObserveLiveness(model.LivenessUnknown)
	}
}

// raiseLocked records msg as the last error and queues the error notification.
func (s *Session) raiseLocked(msg string) {
	s.lastErr = msg
	s.metrics.ObserveError()
	log.Warn("Session error", "error", msg, "status", s.statusLocked())

	s.pending = append(s.pending, func() {
		for _, fn := range s.errorObservers.snapshot() {
			fn(msg)
		}
	})
}

func (s *Session) failLocked(err error) {
	s.raiseLocked(err.Error())
	s.fire(EventFail)
	s.detachLocked()
}
