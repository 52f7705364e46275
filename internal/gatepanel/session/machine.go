package session

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
	fsmutil "github.com/autopeer-io/gatepanel/internal/pkg/util/fsm"
	"github.com/autopeer-io/gatepanel/pkg/log"
)

const (
	// EventConnect (Active) starts a new connection attempt from any status.
	EventConnect = "connect"
	// EventConnected is raised by the transport once the broker accepted the connection.
	EventConnected = "connected"
	// EventFail is raised when a connection attempt fails.
	EventFail = "fail"
	// EventDrop is raised when the transport goes away without an operator request.
	EventDrop = "drop"
	// EventDisconnect (Active) tears the connection down from any status.
	EventDisconnect = "disconnect"
)

var errNoTransport = errors.New("no transport attached")

var anyStatus = []string{
	string(model.StatusDisconnected),
	string(model.StatusConnecting),
	string(model.StatusConnected),
	string(model.StatusError),
}

// newMachine builds the connection state machine. Callbacks run while s.mu is held.
func (s *Session) newMachine() *fsm.FSM {
	events := fsm.Events{
		{Name: EventConnect, Src: anyStatus, Dst: string(model.StatusConnecting)},
		{Name: EventConnected, Src: []string{string(model.StatusConnecting)}, Dst: string(model.StatusConnected)},
		{Name: EventFail, Src: []string{string(model.StatusConnecting)}, Dst: string(model.StatusError)},
		{Name: EventDrop, Src: []string{string(model.StatusConnecting), string(model.StatusConnected)}, Dst: string(model.StatusDisconnected)},
		{Name: EventDisconnect, Src: anyStatus, Dst: string(model.StatusDisconnected)},
	}

	callbacks := fsm.Callbacks{
		// Guards (before_...)
		"before_" + EventConnected: fsmutil.Guard(s.guardTransportAttached),

		// Side-Effects (enter_...)
		"enter_" + string(model.StatusConnecting):   fsmutil.WrapEvent(s.actionResetScope),
		"enter_" + string(model.StatusDisconnected): fsmutil.WrapEvent(s.actionResetScope),
		"enter_state": fsmutil.WrapEvent(s.actionNotifyStatus),
	}

	return fsm.NewFSM(string(model.StatusDisconnected), events, callbacks)
}

// guardTransportAttached refuses "connected" when the session holds no transport.
func (s *Session) guardTransportAttached(_ context.Context, _ *fsm.Event) error {
	if s.client == nil {
		return errNoTransport
	}
	return nil
}

// actionResetScope clears everything that belongs to a single connection.
func (s *Session) actionResetScope(_ context.Context, _ *fsm.Event) error {
	s.resetScopeLocked()
	return nil
}

func (s *Session) actionNotifyStatus(_ context.Context, e *fsm.Event) error {
	status := model.ConnectionStatus(e.Dst)
	log.Info("Connection status changed", "event", e.Event, "from", e.Src, "to", e.Dst)

	s.metrics.ObserveStatus(status)
	s.pending = append(s.pending, func() {
		for _, fn := range s.statusObservers.snapshot() {
			fn(status)
		}
	})
	return nil
}

// fire sends event to the machine and reports whether the status changed.
func (s *Session) fire(event string, args ...any) bool {
	err := s.machine.Event(context.Background(), event, args...)
	switch {
	case err == nil:
		return true
	case fsmutil.IsNoop(err):
		log.Debug("Connection event did not change status", "event", event, "status", s.machine.Current())
	default:
		log.Error(err, "Connection event rejected", "event", event, "status", s.machine.Current())
	}
	return false
}
