package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to fsm.Callback.
// A returned error is recorded on the event and surfaces from FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Guard adapts a check to a before_ callback. A non-nil error cancels the
// transition and is returned from FSM.Event wrapped in fsm.CanceledError.
func Guard(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Cancel(err)
		}
	}
}

// IsNoop reports whether err only means the event did not move the machine:
// a self-transition or an event that is not allowed from the current state.
func IsNoop(err error) bool {
	var noTransition fsm.NoTransitionError
	var invalid fsm.InvalidEventError
	return errors.As(err, &noTransition) || errors.As(err, &invalid)
}
