package chapter

import (
	"errors"
	"reflect"
	"testing"
)

func TestMachineHappyPath(t *testing.T) {
	m := NewMachine()
	for _, ev := range []Event{EventImagesFound, EventSegmentsBuilt, EventConcatenated, EventVerified} {
		if err := m.Fire(ev); err != nil {
			t.Fatalf("Fire(%s): %v", ev, err)
		}
	}
	want := []State{StatePending, StateImagesDiscovered, StateSegmentsBuilt, StateConcatenated, StateDone}
	if !reflect.DeepEqual(m.History(), want) {
		t.Fatalf("history = %v, want %v", m.History(), want)
	}
	if m.Skipped() || m.Err() != nil {
		t.Fatal("completed chapter should not be skipped or failed")
	}
}

func TestMachineSkipExisting(t *testing.T) {
	m := NewMachine()
	if err := m.Fire(EventOutputExists); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if m.State() != StateDone || !m.Skipped() {
		t.Fatalf("state = %s skipped = %v", m.State(), m.Skipped())
	}
}

func TestMachineRejectsOutOfOrderEvents(t *testing.T) {
	tests := []struct {
		name  string
		setup []Event
		event Event
	}{
		{"concat before segments", []Event{EventImagesFound}, EventConcatenated},
		{"skip after discovery", []Event{EventImagesFound}, EventOutputExists},
		{"verify from pending", nil, EventVerified},
		{"event after done", []Event{EventOutputExists}, EventImagesFound},
		{"fail after done", []Event{EventOutputExists}, EventFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			for _, ev := range tt.setup {
				if err := m.Fire(ev); err != nil {
					t.Fatalf("setup Fire(%s): %v", ev, err)
				}
			}
			before := m.State()
			if err := m.Fire(tt.event); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			if m.State() != before {
				t.Fatalf("state changed from %s to %s", before, m.State())
			}
		})
	}
}

func TestMachineFailFromAnyActiveState(t *testing.T) {
	cause := errors.New("boom")
	for _, setup := range [][]Event{
		nil,
		{EventImagesFound},
		{EventImagesFound, EventSegmentsBuilt},
		{EventImagesFound, EventSegmentsBuilt, EventConcatenated},
	} {
		m := NewMachine()
		for _, ev := range setup {
			if err := m.Fire(ev); err != nil {
				t.Fatalf("Fire(%s): %v", ev, err)
			}
		}
		m.Fail(cause)
		if m.State() != StateFailed || !errors.Is(m.Err(), cause) {
			t.Fatalf("after %v: state = %s err = %v", setup, m.State(), m.Err())
		}
		m.Fail(errors.New("second"))
		if !errors.Is(m.Err(), cause) {
			t.Fatal("Failed is absorbing")
		}
	}
}
