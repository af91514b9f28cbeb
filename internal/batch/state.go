package batch

import (
	"fmt"
	"sync"
)

// State is the lifecycle of a driver run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists the legal lifecycle edges. Completed and Aborted are
// terminal: a driver processes at most one batch.
var transitions = map[State][]State{
	StateIdle:    {StateRunning},
	StateRunning: {StateCompleted, StateAborted},
}

// machine guards driver lifecycle transitions.
type machine struct {
	mu    sync.Mutex
	state State
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) to(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("illegal state transition %s -> %s", m.state, next)
}
