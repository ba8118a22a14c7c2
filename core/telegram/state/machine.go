package state

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSession is returned by Advance when the user has no open session.
var ErrNoSession = errors.New("state: no open session")

// Step consumes one input in the session's current state and returns the
// next state. Steps may write s.Fields; the machine persists them.
type Step[In, Out any] func(ctx context.Context, s *Session, in In) (State, Out, error)

// Machine drives per-user sessions through a table of steps. Reaching a
// terminal state discards the session.
type Machine[In, Out any] struct {
	store    Store
	steps    map[State]Step[In, Out]
	terminal map[State]struct{}
}

// NewMachine builds a machine over store. StateIdle is always terminal.
func NewMachine[In, Out any](store Store, steps map[State]Step[In, Out], terminal ...State) *Machine[In, Out] {
	if store == nil {
		store = NewMemoryStore()
	}
	term := map[State]struct{}{StateIdle: {}}
	for _, st := range terminal {
		term[st] = struct{}{}
	}
	return &Machine[In, Out]{store: store, steps: steps, terminal: term}
}

// Begin opens a fresh session in st, replacing any open one. It reports
// whether a session was superseded.
func (m *Machine[In, Out]) Begin(userID int64, st State) (bool, error) {
	if _, ok := m.steps[st]; !ok {
		return false, fmt.Errorf("state: no step registered for %q", st)
	}
	_, existed := m.store.Get(userID)
	m.store.Put(userID, Session{State: st, Fields: map[string]string{}})
	return existed, nil
}

// Cancel discards the user's session, reporting whether one was open.
func (m *Machine[In, Out]) Cancel(userID int64) bool {
	return m.store.Delete(userID)
}

// Current returns the user's state, or StateIdle.
func (m *Machine[In, Out]) Current(userID int64) State {
	s, ok := m.store.Get(userID)
	if !ok {
		return StateIdle
	}
	return s.State
}

// Active reports whether the user has an open session.
func (m *Machine[In, Out]) Active(userID int64) bool {
	_, ok := m.store.Get(userID)
	return ok
}

// Advance feeds in to the step of the user's current state. The returned
// next state is applied even when the step fails, so steps decide whether a
// failure ends the conversation.
func (m *Machine[In, Out]) Advance(ctx context.Context, userID int64, in In) (State, Out, error) {
	var zero Out
	s, ok := m.store.Get(userID)
	if !ok {
		return StateIdle, zero, ErrNoSession
	}
	step, ok := m.steps[s.State]
	if !ok {
		m.store.Delete(userID)
		return StateIdle, zero, fmt.Errorf("state: no step registered for %q", s.State)
	}

	next, out, err := step(ctx, &s, in)
	if next == "" {
		next = s.State
	}
	if _, done := m.terminal[next]; done {
		m.store.Delete(userID)
		return next, out, err
	}
	s.State = next
	m.store.Put(userID, s)
	return next, out, err
}
