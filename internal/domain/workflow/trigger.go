package workflow

// Trigger represents a session event that can cause a phase transition
type Trigger string

const (
	TriggerPickManager         Trigger = "PICK_MANAGER"
	TriggerQueueLoaded         Trigger = "QUEUE_LOADED"
	TriggerQueueEmpty          Trigger = "QUEUE_EMPTY"
	TriggerRequestConfirmation Trigger = "REQUEST_CONFIRMATION"
	TriggerConfirm             Trigger = "CONFIRM"
	TriggerDecline             Trigger = "DECLINE"
	TriggerChangeManager       Trigger = "CHANGE_MANAGER"
	TriggerFail                Trigger = "FAIL"
	TriggerRetry               Trigger = "RETRY"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
