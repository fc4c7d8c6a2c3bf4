package workflow

// sessionTransitions is the phase graph of a review session
//
//	SELECTING_MANAGER --PICK_MANAGER--> SELECTING_MODE
//	SELECTING_MODE|REVIEWING|EMPTY --QUEUE_LOADED--> REVIEWING
//	SELECTING_MODE|REVIEWING|EMPTY --QUEUE_EMPTY--> EMPTY
//	REVIEWING --REQUEST_CONFIRMATION--> CONFIRMING_DOWNGRADE
//	CONFIRMING_DOWNGRADE --CONFIRM|DECLINE--> REVIEWING
//	SELECTING_MANAGER --FAIL--> ERROR --RETRY--> SELECTING_MANAGER
//	any --CHANGE_MANAGER--> SELECTING_MANAGER
func sessionTransitions() Transitions {
	queue := map[Trigger]State{
		TriggerQueueLoaded: StateReviewing,
		TriggerQueueEmpty:  StateEmpty,
	}

	t := Transitions{
		StateSelectingManager: {
			TriggerPickManager: StateSelectingMode,
			TriggerFail:        StateError,
		},
		StateReviewing: {
			TriggerRequestConfirmation: StateConfirmingDowngrade,
		},
		StateConfirmingDowngrade: {
			TriggerConfirm: StateReviewing,
			TriggerDecline: StateReviewing,
		},
		StateError: {
			TriggerRetry: StateSelectingManager,
		},
	}
	t[StateSelectingMode] = map[Trigger]State{}
	t[StateEmpty] = map[Trigger]State{}
	for _, s := range []State{StateSelectingMode, StateReviewing, StateEmpty} {
		for trigger, to := range queue {
			t[s][trigger] = to
		}
	}
	for s := range t {
		t[s][TriggerChangeManager] = StateSelectingManager
	}
	return t
}

// NewSessionMachine builds the phase machine of a review session, starting
// in StateSelectingManager
func NewSessionMachine() *Machine {
	return NewMachine(StateSelectingManager, sessionTransitions())
}
