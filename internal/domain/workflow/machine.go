package workflow

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTransition is returned when a trigger is not permitted in the
// current phase
var ErrInvalidTransition = errors.New("invalid state transition")

// Transitions maps each phase to the triggers it accepts and their targets
type Transitions map[State]map[Trigger]State

// Machine tracks the phase of one session. It is not safe for concurrent
// use; the owning session serializes access.
type Machine struct {
	state State
	table Transitions
}

// NewMachine creates a machine in initial over a private copy of table.
// It panics on phases that are not session phases.
func NewMachine(initial State, table Transitions) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}
	own := make(Transitions, len(table))
	for from, edges := range table {
		if !from.IsValid() {
			panic(fmt.Sprintf("invalid state: %s", from))
		}
		own[from] = make(map[Trigger]State, len(edges))
		for trigger, to := range edges {
			if !to.IsValid() {
				panic(fmt.Sprintf("invalid target state: %s", to))
			}
			own[from][trigger] = to
		}
	}
	return &Machine{state: initial, table: own}
}

// State returns the current phase
func (m *Machine) State() State {
	return m.state
}

// CanFire reports whether trigger is permitted in the current phase
func (m *Machine) CanFire(trigger Trigger) bool {
	_, ok := m.table[m.state][trigger]
	return ok
}

// Fire moves to the phase trigger leads to. An unpermitted trigger leaves
// the phase unchanged.
func (m *Machine) Fire(trigger Trigger) error {
	to, ok := m.table[m.state][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.state)
	}
	m.state = to
	return nil
}

// PermittedTriggers returns the triggers of the current phase, sorted
func (m *Machine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(m.table[m.state]))
	for trigger := range m.table[m.state] {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
