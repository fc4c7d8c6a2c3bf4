package event

// Type identifies a session event
type Type string

const (
	TypeTaskSaved         Type = "task.saved"
	TypeDuplicateWarning  Type = "task.duplicate"
	TypeFieldUpdated      Type = "task.field_updated"
	TypeStatusChanged     Type = "task.status_changed"
	TypeValidationFailed  Type = "task.validation_failed"
	TypeQueueEmpty        Type = "queue.empty"
	TypeQueueExhausted    Type = "queue.exhausted"
	TypeBoundaryReached   Type = "queue.boundary"
	TypeRequestFailed     Type = "request.failed"
	TypeFulfillmentFailed Type = "fulfillment.failed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTaskSaved,
		TypeDuplicateWarning,
		TypeFieldUpdated,
		TypeStatusChanged,
		TypeValidationFailed,
		TypeQueueEmpty,
		TypeQueueExhausted,
		TypeBoundaryReached,
		TypeRequestFailed,
		TypeFulfillmentFailed:
		return true
	default:
		return false
	}
}

// Level is the severity a notice is displayed with
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// DefaultLevel returns the display level for an event type
func (t Type) DefaultLevel() Level {
	switch t {
	case TypeTaskSaved, TypeFieldUpdated:
		return LevelSuccess
	case TypeDuplicateWarning, TypeBoundaryReached:
		return LevelWarning
	case TypeValidationFailed, TypeRequestFailed, TypeFulfillmentFailed:
		return LevelError
	default:
		return LevelInfo
	}
}
