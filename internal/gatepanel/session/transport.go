package session

import (
	"bytes"
	"context"
	"time"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
	"github.com/autopeer-io/gatepanel/pkg/log"
	"github.com/autopeer-io/gatepanel/pkg/mqtt"
)

// HeartbeatMalformed labels status messages that could not be parsed.
const HeartbeatMalformed = "malformed"

// transportEvents forwards the lifecycle of one transport, tagged with the
// generation it was created for.
type transportEvents struct {
	session *Session
	gen     uint64
}

var _ mqtt.LifecycleHandler = (*transportEvents)(nil)

func (t *transportEvents) OnConnected()                   { t.session.handleConnected(t.gen) }
func (t *transportEvents) OnError(err error)              { t.session.handleConnectError(t.gen, err) }
func (t *transportEvents) OnOffline(err error)            { t.session.handleOffline(t.gen, err) }
func (t *transportEvents) OnPeerDisconnect(reason string) { t.session.handlePeerDisconnect(t.gen, reason) }

// currentLocked reports whether gen is the generation of the attached transport.
func (s *Session) currentLocked(gen uint64, event string) bool {
	if gen != s.gen {
		log.Debug("Ignoring event from a discarded transport", "event", event)
		return false
	}
	return true
}

func (s *Session) handleConnected(gen uint64) {
	s.mu.Lock()
	defer s.flush()

	if !s.currentLocked(gen, EventConnected) {
		return
	}
	if s.fire(EventConnected) {
		log.Info("Connected to MQTT broker", "broker", s.opts.Broker, "control", s.topics.Control(), "status", s.topics.Status())
	}
}

func (s *Session) handleConnectError(gen uint64, err error) {
	s.mu.Lock()
	defer s.flush()

	if !s.currentLocked(gen, EventFail) {
		return
	}
	s.failLocked(err)
}

func (s *Session) handleOffline(gen uint64, err error) {
	s.mu.Lock()
	defer s.flush()

	if !s.currentLocked(gen, EventDrop) {
		return
	}
	if err != nil {
		s.raiseLocked("connection lost: " + err.Error())
	}
	s.fire(EventDrop)
	s.detachLocked()
}

func (s *Session) handlePeerDisconnect(gen uint64, reason string) {
	s.mu.Lock()
	defer s.flush()

	if !s.currentLocked(gen, EventDrop) {
		return
	}
	log.Warn("Broker closed the connection", "reason", reason)
	s.fire(EventDrop)
	s.detachLocked()
}

func (s *Session) statusHandler(gen uint64) mqtt.MessageHandler {
	return func(_ context.Context, topic string, payload []byte) {
		s.handleStatusMessage(gen, topic, payload)
	}
}

func (s *Session) handleStatusMessage(gen uint64, topic string, payload []byte) {
	s.mu.Lock()
	defer s.flush()

	if !s.currentLocked(gen, "message") {
		return
	}
	// Liveness belongs to an established connection and starts out unknown.
	if s.statusLocked() != model.StatusConnected {
		log.Debug("Ignoring status message before the connection is up", "topic", topic)
		return
	}

	raw := bytes.Clone(payload)
	s.pending = append(s.pending, func() {
		for _, fn := range s.messageObservers.snapshot() {
			fn(topic, raw)
		}
	})

	sig, err := ParseHeartbeat(payload)
	if err != nil {
		log.Debug("Ignoring malformed heartbeat", "topic", topic, "payload", payload, "error", err)
		s.metrics.ObserveHeartbeat(HeartbeatMalformed)
		return
	}

	// An offline heartbeat leaves the last online reception time in place.
	var receivedAt *time.Time
	if sig.Liveness == model.LivenessOnline {
		s.heartbeat = &model.Heartbeat{ReceivedAt: sig.Timestamp}
		ts := sig.Timestamp
		receivedAt = &ts
	}

	if s.liveness != sig.Liveness {
		log.Info("Gate liveness changed", "from", s.liveness, "to", sig.Liveness)
		s.metrics.ObserveLiveness(sig.Liveness)
	}
	s.liveness = sig.Liveness
	s.metrics.ObserveHeartbeat(string(sig.Liveness))

	liveness := sig.Liveness
	s.pending = append(s.pending, func() {
		for _, fn := range s.heartbeatObservers.snapshot() {
			fn(receivedAt, liveness)
		}
	})
}
