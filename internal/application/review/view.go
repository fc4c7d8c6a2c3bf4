package review

import (
	"time"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/domain/event"
	"github.com/garyjia/pm-status-review/internal/domain/rules"
	"github.com/garyjia/pm-status-review/internal/domain/workflow"
)

// View is an immutable snapshot of a session, safe to render or encode
type View struct {
	SessionID    string         `json:"session_id"`
	Phase        workflow.State `json:"phase"`
	Busy         bool           `json:"busy"`
	ManagerID    string         `json:"manager_id,omitempty"`
	ManagerName  string         `json:"manager_name,omitempty"`
	Mode         entity.Mode    `json:"mode,omitempty"`
	StatusFilter string         `json:"status_filter"`

	FilterOptions []rules.FilterOption    `json:"filter_options"`
	StatusOptions []entity.PicklistOption `json:"status_options"`
	Managers      []entity.ProjectManager `json:"managers"`
	MeetingOpts   []entity.PicklistOption `json:"meeting_options,omitempty"`

	Queue       []string `json:"queue"`
	Cursor      int      `json:"cursor"`
	HasPrevious bool     `json:"has_previous"`
	HasNext     bool     `json:"has_next"`
	NoTasks     bool     `json:"no_tasks"`

	Current  *entity.Task `json:"current,omitempty"`
	Previous *entity.Task `json:"previous,omitempty"`

	Draft      rules.Draft      `json:"draft"`
	Visibility rules.Visibility `json:"visibility"`

	ProjectStatus       string `json:"project_status,omitempty"`
	ProjectStatusLabel  string `json:"project_status_label,omitempty"`
	StatusChanged       bool   `json:"status_changed"`
	PendingConfirmation bool   `json:"pending_confirmation"`
	IsPriority          bool   `json:"is_priority"`

	// Values shown from the predecessor record
	PreviousDayDate *time.Time `json:"previous_day_date,omitempty"`
	LastMeetingDate *time.Time `json:"last_meeting_date,omitempty"`
	PreviousStep    string     `json:"previous_step,omitempty"`
	PreviousAgenda  string     `json:"previous_agenda,omitempty"`

	Notice *event.Event `json:"notice,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Snapshot returns the current session view
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	phase := s.machine.State()
	v := View{
		SessionID:     s.id,
		Phase:         phase,
		Busy:          s.busy,
		ManagerID:     s.managerID,
		Mode:          s.mode,
		StatusFilter:  s.statusFilter,
		StatusOptions: append([]entity.PicklistOption(nil), s.statusOptions...),
		Managers:      append([]entity.ProjectManager(nil), s.managers...),
		Queue:         append([]string(nil), s.queue...),
		Cursor:        s.cursor,
		NoTasks:       phase == workflow.StateEmpty,
		Error:         s.lastError,
	}

	for _, m := range s.managers {
		if m.ID == s.managerID {
			v.ManagerName = m.Name
			break
		}
	}
	if s.mode != "" {
		v.FilterOptions = rules.StatusFilterOptions(s.mode, s.statusFilter)
	}
	if s.notice != nil {
		n := *s.notice
		v.Notice = &n
	}

	if !phase.HasTask() {
		return v
	}

	status := s.projectStatus()
	v.HasPrevious = s.cursor > 0
	v.HasNext = s.cursor < len(s.queue)-1
	v.Current = s.current.Clone()
	v.Previous = s.previous.Clone()
	v.Draft = s.draft.Clone()
	v.Visibility = rules.VisibilityFor(status, s.draft.NextMeetingScheduled, s.draft.SkipSupport)
	v.MeetingOpts = rules.MeetingOptions(status)
	v.ProjectStatus = status
	v.ProjectStatusLabel = rules.StatusLabel(s.statusOptions, status)
	v.StatusChanged = s.statusChanged
	v.PendingConfirmation = phase == workflow.StateConfirmingDowngrade

	if s.current != nil {
		v.IsPriority = s.current.IsOpportunityPriorityRecord
	}
	if p := v.Previous; p != nil {
		v.PreviousDayDate = p.PreviousDayDate
		v.LastMeetingDate = p.LastMeetingDate
		v.PreviousStep = p.PreviousStep
		v.PreviousAgenda = p.PreviousAgenda
	}
	return v
}
