package chapter

import (
	"errors"
	"fmt"
)

// State is a chapter assembly state.
type State string

const (
	StatePending          State = "pending"
	StateImagesDiscovered State = "images_discovered"
	StateSegmentsBuilt    State = "segments_built"
	StateConcatenated     State = "concatenated"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Event drives a transition.
type Event string

const (
	EventOutputExists  Event = "output_exists"
	EventImagesFound   Event = "images_found"
	EventSegmentsBuilt Event = "segments_built"
	EventConcatenated  Event = "concatenated"
	EventVerified      Event = "verified"
	EventFail          Event = "fail"
)

// ErrInvalidTransition is returned when an event does not apply to the
// current state.
var ErrInvalidTransition = errors.New("invalid chapter transition")

type transition struct {
	from  State
	event Event
	to    State
}

var transitions = []transition{
	{from: StatePending, event: EventOutputExists, to: StateDone},
	{from: StatePending, event: EventImagesFound, to: StateImagesDiscovered},
	{from: StateImagesDiscovered, event: EventSegmentsBuilt, to: StateSegmentsBuilt},
	{from: StateSegmentsBuilt, event: EventConcatenated, to: StateConcatenated},
	{from: StateConcatenated, event: EventVerified, to: StateDone},
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Machine tracks one chapter's progress.
type Machine struct {
	state   State
	history []State
	err     error
	skipped bool
}

// NewMachine returns a machine in StatePending.
func NewMachine() *Machine {
	return &Machine{state: StatePending, history: []State{StatePending}}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Err returns the failure cause once the machine is Failed.
func (m *Machine) Err() error { return m.err }

// Skipped reports whether the chapter reached Done because its output existed.
func (m *Machine) Skipped() bool { return m.skipped }

// History returns every state visited, in order.
func (m *Machine) History() []State {
	return append([]State(nil), m.history...)
}

// Fire applies ev. EventFail is accepted from any non-terminal state; use
// Fail to record the cause.
func (m *Machine) Fire(ev Event) error {
	if m.state.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, m.state)
	}
	if ev == EventFail {
		m.enter(StateFailed)
		return nil
	}
	for _, t := range transitions {
		if t.from == m.state && t.event == ev {
			if ev == EventOutputExists {
				m.skipped = true
			}
			m.enter(t.to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, m.state)
}

// Fail moves the machine to Failed with cause. It is a no-op once terminal.
func (m *Machine) Fail(cause error) {
	if m.state.Terminal() {
		return
	}
	m.err = cause
	m.enter(StateFailed)
}

func (m *Machine) enter(s State) {
	m.state = s
	m.history = append(m.history, s)
}
