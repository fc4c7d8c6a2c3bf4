package port

import (
	"context"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/domain/event"
)

// TaskBackend is the remote task/record service a review session talks to.
// Every call may fail; the session converts failures into notices and
// keeps its prior state.
type TaskBackend interface {
	// GetTaskQueue returns the ordered task identifiers for a manager. An
	// empty list is a valid result.
	GetTaskQueue(ctx context.Context, managerID string, mode entity.Mode, statusFilter string) ([]string, error)

	// GetTaskDetail returns the current and previous snapshots for the
	// opportunity behind taskID. Either may be nil.
	GetTaskDetail(ctx context.Context, taskID string) (*entity.TaskDetail, error)

	// GetManagerList returns the selectable managers with review stats
	GetManagerList(ctx context.Context) ([]entity.ProjectManager, error)

	// GetStatusOptions returns picklist options for a field path, in order
	GetStatusOptions(ctx context.Context, fieldPath string) ([]entity.PicklistOption, error)

	// InsertTask submits a serialized record payload. It returns
	// entity.InsertSuccess or a non-fatal duplicate/conflict warning.
	InsertTask(ctx context.Context, payload string) (string, error)

	// MarkFulfilled flags a predecessor record as followed up
	MarkFulfilled(ctx context.Context, recordID string) error

	// UpdateTaskField writes a single field of a persisted record
	UpdateTaskField(ctx context.Context, recordID, field, value string) error
}

// Notifier displays user-facing notices (success, warning, error toasts)
type Notifier interface {
	Notify(ctx context.Context, e *event.Event)
}

// FulfillmentQueue accepts best-effort markFulfilled requests. Enqueue must
// not block the caller.
type FulfillmentQueue interface {
	Enqueue(recordID string) bool
}
