package workflow

import "strconv"

// State represents an invoice lifecycle state. The numeric values mirror the
// status_nota reference table and are what gets persisted.
type State int

const (
	StatePending    State = 1
	StateIssued     State = 2
	StateApproved   State = 4
	StateRejected   State = 5
	StateProcessing State = 6
)

var stateNames = map[State]string{
	StatePending:    "PENDENTE",
	StateIssued:     "EMITIDA",
	StateApproved:   "APROVADA",
	StateRejected:   "RECUSADA",
	StateProcessing: "EM_PROCESSAMENTO",
}

var terminalStates = map[State]bool{
	StateIssued:   true,
	StateRejected: true,
}

// IsValid returns true if the state is a defined lifecycle state.
func (s State) IsValid() bool {
	_, ok := stateNames[s]
	return ok
}

// IsTerminal returns true if no automated transition leaves the state.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the state name, or the raw numeric value for unknown states.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return strconv.Itoa(int(s))
}
