// Package review implements the review session controller: it owns the
// task queue and cursor of one project manager's review, the draft under
// edit, and orchestrates every call to the task backend.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/domain/event"
	"github.com/garyjia/pm-status-review/internal/domain/rules"
	"github.com/garyjia/pm-status-review/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// User-facing messages
const (
	msgManagersFailed    = "Failed to load project managers."
	msgStatusOptsFailed  = "Failed to load project status options."
	msgQueueFailed       = "Failed to get project list."
	msgDetailFailed      = "Failed to fetch task details."
	msgSaveFailed        = "Task save failed."
	msgFieldUpdateFailed = "Field update failed."
	msgSaved             = "Task saved successfully."
	msgNoTasks           = "No tasks found for the selected manager and filter."
	msgAllDone           = "All tasks completed."
	msgFieldUpdated      = "Field updated."
	msgSelectManager     = "Please select a Project Manager"
	msgFirstRecord       = "You are already at the first record."
	msgLastRecord        = "You are already at the last record."
	msgStatusChangedTmpl = "Project status changed to %s. Review the follow-up and support details."
)

// SaveOutcome tells how a save attempt ended when no error was returned
type SaveOutcome string

const (
	SaveOutcomeSaved     SaveOutcome = "saved"
	SaveOutcomeDuplicate SaveOutcome = "duplicate"
)

// SaveResult describes a completed save attempt
type SaveResult struct {
	Outcome        SaveOutcome `json:"outcome"`
	Warning        string      `json:"warning,omitempty"`
	QueueExhausted bool        `json:"queue_exhausted"`
}

// Options configures a Session
type Options struct {
	ID                  string
	Notifier            port.Notifier
	Fulfiller           port.FulfillmentQueue
	Clock               func() time.Time
	DefaultViewFilter   string
	DefaultUpdateFilter string
}

// Session is the review session controller. All methods are safe for
// concurrent use; actions that conflict with an outstanding backend request
// fail fast with ErrBusy.
type Session struct {
	id        string
	backend   port.TaskBackend
	notifier  port.Notifier
	fulfiller port.FulfillmentQueue
	logger    Logger
	now       func() time.Time

	defaultViewFilter   string
	defaultUpdateFilter string

	mu      sync.Mutex
	busy    bool
	machine *workflow.Machine

	managers      []entity.ProjectManager
	statusOptions []entity.PicklistOption

	managerID    string
	mode         entity.Mode
	statusFilter string

	queue    []string
	cursor   int
	current  *entity.Task
	previous *entity.Task
	draft    rules.Draft

	statusChanged bool
	notice        *event.Event
	lastError     string
}

// NewSession creates a session in the SELECTING_MANAGER phase
func NewSession(backend port.TaskBackend, logger Logger, opts Options) *Session {
	s := &Session{
		id:                  opts.ID,
		backend:             backend,
		notifier:            opts.Notifier,
		fulfiller:           opts.Fulfiller,
		logger:              logger,
		now:                 opts.Clock,
		defaultViewFilter:   opts.DefaultViewFilter,
		defaultUpdateFilter: opts.DefaultUpdateFilter,
		machine:             workflow.NewSessionMachine(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.defaultViewFilter == "" {
		s.defaultViewFilter = entity.FilterAll
	}
	if s.defaultUpdateFilter == "" {
		s.defaultUpdateFilter = entity.FilterDueToday
	}
	s.statusFilter = s.defaultUpdateFilter
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Start loads the manager list and project status picklist. Without a
// manager list nothing can be reviewed, so its failure moves the session
// to ERROR; a picklist failure only degrades status labels.
func (s *Session) Start(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	managers, err := s.backend.GetManagerList(ctx)
	if err != nil {
		s.mu.Lock()
		s.fire(workflow.TriggerFail)
		s.mu.Unlock()
		return s.requestFailed(ctx, "get manager list", msgManagersFailed, err)
	}

	s.mu.Lock()
	s.managers = append([]entity.ProjectManager(nil), managers...)
	s.mu.Unlock()

	opts, err := s.backend.GetStatusOptions(ctx, entity.ProjectStatusField)
	if err != nil {
		return s.requestFailed(ctx, "get status options", msgStatusOptsFailed, err)
	}

	s.mu.Lock()
	s.statusOptions = rules.FilterStatusOptions(opts)
	s.mu.Unlock()

	s.logger.Info("Review session started",
		"session_id", s.id,
		"managers", len(managers),
		"status_options", len(opts))
	return nil
}

// Retry leaves the ERROR phase and starts again
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if err := s.machine.Fire(workflow.TriggerRetry); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrWrongPhase, err)
	}
	s.lastError = ""
	s.mu.Unlock()

	return s.Start(ctx)
}

// PickManager records the chosen manager and moves on to mode selection
func (s *Session) PickManager(ctx context.Context, managerID string) error {
	if managerID == "" {
		s.notify(ctx, event.TypeValidationFailed, msgSelectManager)
		return ErrNoManager
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return ErrBusy
	}
	switch s.machine.State() {
	case workflow.StateSelectingManager:
		s.fire(workflow.TriggerPickManager)
	case workflow.StateSelectingMode:
	default:
		return ErrWrongPhase
	}
	s.managerID = managerID
	return nil
}

// ChooseMode starts the review of the picked manager in the given mode
func (s *Session) ChooseMode(ctx context.Context, mode entity.Mode) error {
	s.mu.Lock()
	managerID := s.managerID
	phase := s.machine.State()
	s.mu.Unlock()

	if phase != workflow.StateSelectingMode {
		return ErrWrongPhase
	}
	return s.SelectManager(ctx, managerID, mode)
}

// SelectManager requests the task queue of managerID in mode under the
// active status filter and loads its first task. An empty queue moves the
// session to EMPTY without fetching any detail. On failure the previous
// state is kept.
func (s *Session) SelectManager(ctx context.Context, managerID string, mode entity.Mode) error {
	if managerID == "" {
		s.notify(ctx, event.TypeValidationFailed, msgSelectManager)
		return ErrNoManager
	}
	if !mode.IsValid() {
		return ErrInvalidMode
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	phase := s.machine.State()
	filter := s.statusFilter
	s.mu.Unlock()

	switch phase {
	case workflow.StateError, workflow.StateConfirmingDowngrade:
		return ErrWrongPhase
	}
	if !rules.IsFilterAllowed(mode, filter) {
		filter = s.defaultFilter(mode)
	}

	ids, detail, err := s.fetchQueue(ctx, managerID, mode, filter)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.machine.State() == workflow.StateSelectingManager {
		s.fire(workflow.TriggerPickManager)
	}
	s.managerID = managerID
	s.mode = mode
	s.statusFilter = filter
	empty := s.applyQueue(ctx, ids, detail)
	s.mu.Unlock()

	s.logger.Info("Manager selected",
		"session_id", s.id,
		"manager_id", managerID,
		"mode", mode,
		"status_filter", filter,
		"queue_length", len(ids))

	if empty {
		s.notify(ctx, event.TypeQueueEmpty, msgNoTasks)
	}
	return nil
}

// ChangeStatusFilter re-requests the queue under a new filter. The change
// is atomic: on failure the previous filter, queue and snapshots return.
func (s *Session) ChangeStatusFilter(ctx context.Context, filter string) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	if filter == s.statusFilter {
		s.mu.Unlock()
		return nil
	}
	if s.mode != "" && !rules.IsFilterAllowed(s.mode, filter) {
		s.mu.Unlock()
		return ErrInvalidFilter
	}

	phase := s.machine.State()
	if phase == workflow.StateSelectingManager || phase == workflow.StateSelectingMode || phase == workflow.StateError {
		s.statusFilter = filter
		s.mu.Unlock()
		return nil
	}
	if phase == workflow.StateConfirmingDowngrade {
		s.mu.Unlock()
		return ErrConfirmationPending
	}

	saved := s.saveTaskState()
	s.statusFilter = filter
	s.clearTaskState()
	managerID, mode := s.managerID, s.mode
	s.mu.Unlock()

	ids, detail, err := s.fetchQueue(ctx, managerID, mode, filter)
	if err != nil {
		s.mu.Lock()
		s.restoreTaskState(saved)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	empty := s.applyQueue(ctx, ids, detail)
	s.mu.Unlock()

	if empty {
		s.notify(ctx, event.TypeQueueEmpty, msgNoTasks)
	}
	return nil
}

// LoadTaskDetail fetches the snapshot pair for taskID and re-derives the
// draft. On failure the current snapshots are kept.
func (s *Session) LoadTaskDetail(ctx context.Context, taskID string) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	phase := s.machine.State()
	s.mu.Unlock()
	if phase != workflow.StateReviewing {
		return ErrNotReviewing
	}

	detail, err := s.fetchDetail(ctx, taskID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for i, id := range s.queue {
		if id == taskID {
			s.cursor = i
			break
		}
	}
	s.applyDetail(detail)
	s.mu.Unlock()
	return nil
}

// ValidateAndSave validates the draft against the previous task's project
// status, submits the derived record, and advances the queue on success.
// A validation failure returns a *rules.ValidationError without calling the
// backend. A duplicate warning is reported through SaveResult and leaves
// the session untouched.
func (s *Session) ValidateAndSave(ctx context.Context) (*SaveResult, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	s.mu.Lock()
	switch s.machine.State() {
	case workflow.StateReviewing:
	case workflow.StateConfirmingDowngrade:
		s.mu.Unlock()
		return nil, ErrConfirmationPending
	default:
		s.mu.Unlock()
		return nil, ErrNotReviewing
	}

	status := s.projectStatus()
	draft := s.draft.Clone()
	current, previous := s.current.Clone(), s.previous.Clone()
	s.mu.Unlock()

	if err := rules.Validate(status, draft); err != nil {
		var verr *rules.ValidationError
		if errors.As(err, &verr) {
			s.notify(ctx, event.TypeValidationFailed, verr.Message)
		}
		return nil, err
	}

	record, err := rules.BuildRecord(current, previous, draft, s.now())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal([]*entity.Task{record})
	if err != nil {
		return nil, fmt.Errorf("encode task payload: %w", err)
	}

	reply, err := s.backend.InsertTask(ctx, string(payload))
	if err != nil {
		return nil, s.requestFailed(ctx, "insert task", msgSaveFailed, err)
	}
	if reply != entity.InsertSuccess {
		s.logger.Info("Duplicate task submission",
			"session_id", s.id,
			"opportunity_id", record.OpportunityID,
			"warning", reply)
		s.notify(ctx, event.TypeDuplicateWarning, reply)
		return &SaveResult{Outcome: SaveOutcomeDuplicate, Warning: reply}, nil
	}

	s.logger.Info("Task saved",
		"session_id", s.id,
		"opportunity_id", record.OpportunityID,
		"record_id", record.RecordID,
		"status", record.OppProjectStatus)
	s.notify(ctx, event.TypeTaskSaved, msgSaved)

	if previous.IsPersisted() {
		s.markFulfilled(previous.RecordID)
	}

	result := &SaveResult{Outcome: SaveOutcomeSaved}
	exhausted, err := s.advance(ctx)
	result.QueueExhausted = exhausted
	return result, err
}

// Advance moves on after a save: view mode reloads the current task in
// place, update mode re-requests the queue and starts again at its head.
func (s *Session) Advance(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	phase := s.machine.State()
	s.mu.Unlock()
	if phase != workflow.StateReviewing {
		return ErrNotReviewing
	}

	_, err := s.advance(ctx)
	return err
}

// GoNext moves the cursor forward and loads that task
func (s *Session) GoNext(ctx context.Context) error {
	return s.move(ctx, 1)
}

// GoPrevious moves the cursor back and loads that task
func (s *Session) GoPrevious(ctx context.Context) error {
	return s.move(ctx, -1)
}

// ChangeManager discards all review state and returns to manager
// selection. The loaded manager list and picklist are kept.
func (s *Session) ChangeManager(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return ErrBusy
	}
	s.fire(workflow.TriggerChangeManager)
	s.managerID = ""
	s.mode = ""
	s.statusFilter = s.defaultUpdateFilter
	s.clearTaskState()
	s.lastError = ""
	s.notice = nil
	return nil
}

// DismissError clears the displayed request error
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

// UpdateField writes one field of the current persisted record directly,
// bypassing draft validation. Only available in view mode.
func (s *Session) UpdateField(ctx context.Context, field, value string) error {
	if _, ok := InlineFields[field]; !ok {
		return ErrFieldNotEditable
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	if s.machine.State() != workflow.StateReviewing {
		s.mu.Unlock()
		return ErrNotReviewing
	}
	if s.mode != entity.ModeView {
		s.mu.Unlock()
		return ErrViewModeOnly
	}
	if !s.current.IsPersisted() {
		s.mu.Unlock()
		return ErrNotReviewing
	}
	recordID := s.current.RecordID
	s.mu.Unlock()

	if err := s.backend.UpdateTaskField(ctx, recordID, field, value); err != nil {
		return s.requestFailed(ctx, "update task field", msgFieldUpdateFailed, err)
	}

	s.mu.Lock()
	if s.current != nil && s.current.RecordID == recordID {
		InlineFields[field](s.current, value)
	}
	s.mu.Unlock()

	s.logger.Info("Task field updated",
		"session_id", s.id,
		"record_id", recordID,
		"field", field)
	s.notify(ctx, event.TypeFieldUpdated, msgFieldUpdated)
	return nil
}

// InlineFields are the record fields UpdateField accepts, keyed by wire name
var InlineFields = map[string]func(t *entity.Task, v string){
	"next_steps":      func(t *entity.Task, v string) { t.NextSteps = v },
	"agenda":          func(t *entity.Task, v string) { t.NextAgenda = v },
	"risk_and_action": func(t *entity.Task, v string) { t.RiskAndAction = v },
	"reason":          func(t *entity.Task, v string) { t.Reason = v },
	"support_plan":    func(t *entity.Task, v string) { t.SupportPlan = v },
}

func (s *Session) move(ctx context.Context, delta int) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	switch s.machine.State() {
	case workflow.StateReviewing:
	case workflow.StateConfirmingDowngrade:
		s.mu.Unlock()
		return ErrConfirmationPending
	default:
		s.mu.Unlock()
		return ErrNotReviewing
	}
	target := s.cursor + delta
	if target < 0 || target >= len(s.queue) {
		s.mu.Unlock()
		if delta < 0 {
			s.notify(ctx, event.TypeBoundaryReached, msgFirstRecord)
			return ErrFirstRecord
		}
		s.notify(ctx, event.TypeBoundaryReached, msgLastRecord)
		return ErrLastRecord
	}
	id := s.queue[target]
	s.mu.Unlock()

	detail, err := s.fetchDetail(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cursor = target
	s.applyDetail(detail)
	s.mu.Unlock()
	return nil
}

// advance must be called with the busy flag held. It reports whether the
// queue ran out.
func (s *Session) advance(ctx context.Context) (bool, error) {
	s.mu.Lock()
	mode, managerID, filter := s.mode, s.managerID, s.statusFilter
	var currentID string
	if len(s.queue) > 0 {
		currentID = s.queue[s.cursor]
	}
	s.mu.Unlock()

	if mode == entity.ModeView {
		detail, err := s.fetchDetail(ctx, currentID)
		if err != nil {
			return false, err
		}
		s.mu.Lock()
		s.applyDetail(detail)
		s.mu.Unlock()
		return false, nil
	}

	ids, detail, err := s.fetchQueue(ctx, managerID, mode, filter)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	empty := s.applyQueue(ctx, ids, detail)
	s.mu.Unlock()

	if empty {
		s.logger.Info("Review queue exhausted", "session_id", s.id, "manager_id", managerID)
		s.notify(ctx, event.TypeQueueExhausted, msgAllDone)
	}
	return empty, nil
}

// fetchQueue requests the queue and, when it is not empty, the detail of
// its first entry. Nothing is applied to the session.
func (s *Session) fetchQueue(ctx context.Context, managerID string, mode entity.Mode, filter string) ([]string, *entity.TaskDetail, error) {
	ids, err := s.backend.GetTaskQueue(ctx, managerID, mode, filter)
	if err != nil {
		return nil, nil, s.requestFailed(ctx, "get task queue", msgQueueFailed, err)
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	detail, err := s.fetchDetail(ctx, ids[0])
	if err != nil {
		return nil, nil, err
	}
	return ids, detail, nil
}

func (s *Session) fetchDetail(ctx context.Context, taskID string) (*entity.TaskDetail, error) {
	detail, err := s.backend.GetTaskDetail(ctx, taskID)
	if err != nil {
		return nil, s.requestFailed(ctx, "get task detail", msgDetailFailed, err)
	}
	if detail == nil {
		detail = &entity.TaskDetail{}
	}
	return detail, nil
}

// applyQueue installs a fetched queue; mu must be held. It reports whether
// the queue was empty.
func (s *Session) applyQueue(ctx context.Context, ids []string, detail *entity.TaskDetail) bool {
	if len(ids) == 0 {
		s.clearTaskState()
		s.fire(workflow.TriggerQueueEmpty)
		return true
	}

	s.queue = append([]string(nil), ids...)
	s.cursor = 0
	s.applyDetail(detail)
	s.fire(workflow.TriggerQueueLoaded)
	return false
}

// applyDetail installs a snapshot pair and re-derives the draft; mu must be
// held.
func (s *Session) applyDetail(detail *entity.TaskDetail) {
	s.current = detail.Current.Clone()
	s.previous = detail.Previous.Clone()
	s.draft = rules.DeriveDraft(s.previous, s.now())
	s.statusChanged = false
}

type taskState struct {
	statusFilter  string
	queue         []string
	cursor        int
	current       *entity.Task
	previous      *entity.Task
	draft         rules.Draft
	statusChanged bool
}

func (s *Session) saveTaskState() taskState {
	return taskState{
		statusFilter:  s.statusFilter,
		queue:         s.queue,
		cursor:        s.cursor,
		current:       s.current,
		previous:      s.previous,
		draft:         s.draft,
		statusChanged: s.statusChanged,
	}
}

func (s *Session) restoreTaskState(st taskState) {
	s.statusFilter = st.statusFilter
	s.queue = st.queue
	s.cursor = st.cursor
	s.current = st.current
	s.previous = st.previous
	s.draft = st.draft
	s.statusChanged = st.statusChanged
}

func (s *Session) clearTaskState() {
	s.queue = nil
	s.cursor = 0
	s.current = nil
	s.previous = nil
	s.draft = rules.Draft{}
	s.statusChanged = false
}

// projectStatus is the authoritative status of the task being closed out;
// mu must be held.
func (s *Session) projectStatus() string {
	if s.previous != nil && s.previous.OppProjectStatus != "" {
		return s.previous.OppProjectStatus
	}
	if s.current != nil {
		return s.current.OppProjectStatus
	}
	return ""
}

func (s *Session) defaultFilter(mode entity.Mode) string {
	if mode == entity.ModeView {
		return s.defaultViewFilter
	}
	return s.defaultUpdateFilter
}

func (s *Session) markFulfilled(recordID string) {
	if s.fulfiller != nil {
		if !s.fulfiller.Enqueue(recordID) {
			s.logger.Error("Fulfillment queue full, dropping request",
				"session_id", s.id,
				"record_id", recordID)
		}
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.backend.MarkFulfilled(ctx, recordID); err != nil {
			s.logger.Error("Failed to mark task fulfilled",
				"session_id", s.id,
				"record_id", recordID,
				"error", err)
		}
	}()
}

// fire applies a phase transition; mu must be held. Callers only fire
// triggers valid for the phase they checked, so a failure is a bug and is
// logged rather than surfaced.
func (s *Session) fire(trigger workflow.Trigger) {
	if err := s.machine.Fire(trigger); err != nil {
		s.logger.Error("Unexpected phase transition failure",
			"session_id", s.id,
			"trigger", trigger,
			"phase", s.machine.State(),
			"error", err)
	}
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Session) requestFailed(ctx context.Context, op, message string, err error) error {
	s.logger.Error("Backend request failed",
		"session_id", s.id,
		"op", op,
		"error", err)
	s.notify(ctx, event.TypeRequestFailed, message)
	return &RequestError{Op: op, Message: message, Err: err}
}

func (s *Session) notify(ctx context.Context, t event.Type, message string) {
	e := event.NewEvent(t, s.id, message)

	s.mu.Lock()
	s.notice = e
	if e.IsError() {
		s.lastError = message
	}
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.Notify(ctx, e)
	}
}
