package workflow

// State is a phase of a review session
type State string

const (
	StateSelectingManager    State = "SELECTING_MANAGER"
	StateSelectingMode       State = "SELECTING_MODE"
	StateReviewing           State = "REVIEWING"
	StateConfirmingDowngrade State = "CONFIRMING_DOWNGRADE"
	StateEmpty               State = "EMPTY"
	StateError               State = "ERROR"
)

var validStates = map[State]bool{
	StateSelectingManager:    true,
	StateSelectingMode:       true,
	StateReviewing:           true,
	StateConfirmingDowngrade: true,
	StateEmpty:               true,
	StateError:               true,
}

// States in which a task snapshot is loaded
var taskStates = map[State]bool{
	StateReviewing:           true,
	StateConfirmingDowngrade: true,
}

// HasTask returns true if a task is loaded in this phase
func (s State) HasTask() bool {
	return taskStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known session phase
func (s State) IsValid() bool {
	return validStates[s]
}
