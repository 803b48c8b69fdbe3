package receiver

import (
	"fmt"
	"sync"
)

// State is the receiver lifecycle stage.
type State string

const (
	StateInstalling State = "installing"
	StateActivating State = "activating"
	StateActive     State = "active"
)

type event string

const (
	evInstalled event = "installed"
	evActivated event = "activated"
)

var transitions = map[State]map[event]State{
	StateInstalling: {evInstalled: StateActivating},
	StateActivating: {evActivated: StateActive},
}

// TransitionError is returned when an event is not valid in the current state.
type TransitionError struct {
	State State
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no transition from state '%s' for event '%s'", e.State, e.Event)
}

type lifecycle struct {
	mu    sync.Mutex
	state State
}

func (l *lifecycle) current() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// fire runs action and, if it succeeds, moves to the next state. The lock is
// held for the whole transition so concurrent callers observe it atomically.
func (l *lifecycle) fire(ev event, action func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, ok := transitions[l.state][ev]
	if !ok {
		return &TransitionError{State: l.state, Event: string(ev)}
	}
	if action != nil {
		if err := action(); err != nil {
			return fmt.Errorf("%s: %w", ev, err)
		}
	}
	l.state = next
	return nil
}
