package session

import (
	"sync"
	"time"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
)

// StatusFunc is called with the new status after every status change.
type StatusFunc func(status model.ConnectionStatus)

// ErrorFunc is called with a human-readable message whenever an error occurs.
type ErrorFunc func(message string)

// HeartbeatFunc is called for every well-formed status message. receivedAt is
// nil for offline heartbeats.
type HeartbeatFunc func(receivedAt *time.Time, liveness model.GateLiveness)

// MessageFunc is called with every raw message received on the status topic.
type MessageFunc func(topic string, payload []byte)

// registry keeps observers in registration order.
type registry[F any] struct {
	mu      sync.Mutex
	next    uint64
	entries []registryEntry[F]
}

type registryEntry[F any] struct {
	id uint64
	fn F
}

func (r *registry[F]) add(fn F) func() {
	r.mu.Lock()
	r.next++
	id := r.next
	r.entries = append(r.entries, registryEntry[F]{id: id, fn: fn})
	r.mu.Unlock()

	return sync.OnceFunc(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.entries {
			if e.id == id {
				r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
				return
			}
		}
	})
}

func (r *registry[F]) snapshot() []F {
	r.mu.Lock()
	defer r.mu.Unlock()
	fns := make([]F, len(r.entries))
	for i, e := range r.entries {
		fns[i] = e.fn
	}
	return fns
}

// OnStatusChange registers fn for status changes. Repeated statuses are not reported.
// The returned function removes the registration.
func (s *Session) OnStatusChange(fn StatusFunc) (unsubscribe func()) {
	return s.statusObservers.add(fn)
}

// OnError registers fn for error notifications.
func (s *Session) OnError(fn ErrorFunc) (unsubscribe func()) {
	return s.errorObservers.add(fn)
}

// OnHeartbeat registers fn for heartbeat notifications.
func (s *Session) OnHeartbeat(fn HeartbeatFunc) (unsubscribe func()) {
	return s.heartbeatObservers.add(fn)
}

// OnMessage registers fn for raw status topic messages, malformed ones included.
func (s *Session) OnMessage(fn MessageFunc) (unsubscribe func()) {
	return s.messageObservers.add(fn)
}
