package workflow

import "fmt"

// Machine tracks the current state of one invoice and validates transitions
// against the configured lifecycle table.
type Machine struct {
	current     State
	transitions map[State]map[Trigger]State
}

// MachineBuilder accumulates the transition table shared by every machine
// instance it builds.
type MachineBuilder struct {
	transitions map[State]map[Trigger]State
}

// NewBuilder creates an empty machine builder.
func NewBuilder() *MachineBuilder {
	return &MachineBuilder{transitions: make(map[State]map[Trigger]State)}
}

// Permit allows trigger to move from one state to another.
func (b *MachineBuilder) Permit(from State, trigger Trigger, to State) *MachineBuilder {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid source state: %s", from))
	}
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}
	row, ok := b.transitions[from]
	if !ok {
		row = make(map[Trigger]State)
		b.transitions[from] = row
	}
	row[trigger] = to
	return b
}

// Build creates a machine positioned at the given initial state. The
// transition table is shared and never mutated after Build.
func (b *MachineBuilder) Build(initial State) (*Machine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidState, int(initial))
	}
	return &Machine{current: initial, transitions: b.transitions}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current state.
func (m *Machine) CanFire(trigger Trigger) bool {
	_, ok := m.transitions[m.current][trigger]
	return ok
}

// Fire executes the trigger, moving to the target state, or returns
// ErrInvalidTransition naming the state the trigger requires.
func (m *Machine) Fire(trigger Trigger) error {
	to, ok := m.transitions[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}

// PermittedTriggers returns the triggers that can fire in the current state.
func (m *Machine) PermittedTriggers() []Trigger {
	row := m.transitions[m.current]
	triggers := make([]Trigger, 0, len(row))
	for trigger := range row {
		triggers = append(triggers, trigger)
	}
	return triggers
}
