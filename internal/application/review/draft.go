package review

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/domain/event"
	"github.com/garyjia/pm-status-review/internal/domain/rules"
	"github.com/garyjia/pm-status-review/internal/domain/workflow"
)

// DateLayout is the wire format of draft dates
const DateLayout = "2006-01-02"

// DateTimeLayout is the wire format of a follow-up meeting with a time
const DateTimeLayout = "2006-01-02 15:04"

// A follow-up meeting date may carry a time; the support end date may not.
var meetingLayouts = []string{time.RFC3339, DateTimeLayout, DateLayout}

// DraftUpdate carries a partial draft edit. Nil fields are left unchanged;
// an empty date string clears the date.
type DraftUpdate struct {
	NextMeetingScheduled *string `json:"next_meeting_scheduled,omitempty"`
	NextMeetingDate      *string `json:"next_meeting_date,omitempty"`
	NextSteps            *string `json:"next_steps,omitempty"`
	Agenda               *string `json:"agenda,omitempty"`
	RiskAndAction        *string `json:"risk_and_action,omitempty"`
	Reason               *string `json:"reason,omitempty"`
	SupportPlan          *string `json:"support_plan,omitempty"`
	SupportEndDate       *string `json:"support_end_date,omitempty"`
}

// UpdateDraft applies a partial edit. The follow-up choice is applied last
// so a Go Live downgrade still waits for confirmation.
func (s *Session) UpdateDraft(ctx context.Context, u DraftUpdate) error {
	var meetingDate, supportEnd *time.Time
	var err error
	if u.NextMeetingDate != nil {
		if meetingDate, err = s.parseDate(*u.NextMeetingDate, meetingLayouts...); err != nil {
			return err
		}
	}
	if u.SupportEndDate != nil {
		if supportEnd, err = s.parseDate(*u.SupportEndDate, DateLayout); err != nil {
			return err
		}
	}

	err = s.editDraft(func(d *rules.Draft) {
		if u.NextMeetingDate != nil {
			d.NextMeetingDate = meetingDate
		}
		if u.SupportEndDate != nil {
			d.SupportEndDate = supportEnd
		}
		setIf(&d.NextSteps, u.NextSteps)
		setIf(&d.Agenda, u.Agenda)
		setIf(&d.RiskAndAction, u.RiskAndAction)
		setIf(&d.Reason, u.Reason)
		setIf(&d.SupportPlan, u.SupportPlan)
	})
	if err != nil {
		return err
	}

	if u.NextMeetingScheduled != nil {
		return s.SetNextMeetingScheduled(ctx, *u.NextMeetingScheduled)
	}
	return nil
}

// SetNextMeetingScheduled sets the follow-up choice. Moving a Go Live
// project from Yes to No drops its support follow-up, so the change is
// held in CONFIRMING_DOWNGRADE until confirmed or declined.
func (s *Session) SetNextMeetingScheduled(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable(); err != nil {
		return err
	}

	status := s.projectStatus()
	if !meetingAllowed(status, value) {
		return fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}

	if status == entity.ProjectStatusGoLive &&
		s.draft.NextMeetingScheduled == entity.MeetingYes &&
		value == entity.MeetingNo {
		s.fire(workflow.TriggerRequestConfirmation)
		return nil
	}

	s.draft.NextMeetingScheduled = value
	if value == entity.MeetingYes {
		s.draft.SkipSupport = false
	}
	if value == entity.MeetingCallNotRequired {
		s.draft.NextMeetingDate = nil
	}
	return nil
}

// ConfirmDowngrade applies the pending Go Live downgrade and waives the
// support follow-up
func (s *Session) ConfirmDowngrade(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return ErrBusy
	}
	if s.machine.State() != workflow.StateConfirmingDowngrade {
		return ErrNoConfirmation
	}

	s.draft.NextMeetingScheduled = entity.MeetingNo
	s.draft.SupportEndDate = nil
	s.draft.SupportPlan = ""
	s.draft.RiskAndAction = ""
	s.draft.SkipSupport = true
	s.fire(workflow.TriggerConfirm)
	return nil
}

// DeclineDowngrade drops the pending downgrade and keeps Yes
func (s *Session) DeclineDowngrade(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return ErrBusy
	}
	if s.machine.State() != workflow.StateConfirmingDowngrade {
		return ErrNoConfirmation
	}

	s.draft.NextMeetingScheduled = entity.MeetingYes
	s.fire(workflow.TriggerDecline)
	return nil
}

// ChangeProjectStatus rewrites the working project status. When no
// previous task exists a virtual one is derived from the current task so
// the new status reaches the saved record.
func (s *Session) ChangeProjectStatus(ctx context.Context, status string) error {
	notice, changed, err := s.changeStatus(status)
	if err != nil || !changed {
		return err
	}

	s.logger.Info("Project status changed",
		"session_id", s.id,
		"status", status)
	if notice != "" {
		s.notify(ctx, event.TypeStatusChanged, notice)
	}
	return nil
}

func (s *Session) changeStatus(status string) (notice string, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable(); err != nil {
		return "", false, err
	}
	if !s.statusAllowed(status) {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidValue, status)
	}
	if status == s.projectStatus() {
		return "", false, nil
	}

	if s.previous == nil {
		virtual := s.virtualTask()
		if virtual == nil {
			return "", false, ErrNotReviewing
		}
		s.previous = virtual
	}
	s.previous.OppProjectStatus = status

	scheduled := s.draft.NextMeetingScheduled
	if scheduled != "" && !meetingAllowed(status, scheduled) {
		s.draft.NextMeetingScheduled = ""
	}

	s.statusChanged = false
	if status == entity.ProjectStatusGoLive || status == entity.ProjectStatusClosed {
		s.statusChanged = true
		if s.draft.NextMeetingScheduled == "" {
			s.draft.NextMeetingScheduled = entity.MeetingYes
			s.draft.SkipSupport = false
		}
		notice = fmt.Sprintf(msgStatusChangedTmpl, rules.StatusLabel(s.statusOptions, status))
	}
	return notice, true, nil
}

// virtualTask stands in for a missing previous task. Without either
// snapshot only the opportunity id from the queue is known; mu must be
// held.
func (s *Session) virtualTask() *entity.Task {
	if s.current != nil {
		virtual := s.current.Clone()
		virtual.RecordID = ""
		virtual.IsVirtual = true
		return virtual
	}
	if s.cursor < 0 || s.cursor >= len(s.queue) {
		return nil
	}
	return &entity.Task{OpportunityID: s.queue[s.cursor], IsVirtual: true}
}

// SetNextMeetingDate sets the follow-up date and time; nil clears it
func (s *Session) SetNextMeetingDate(date *time.Time) error {
	var v *time.Time
	if date != nil {
		t := *date
		v = &t
	}
	return s.editDraft(func(d *rules.Draft) { d.NextMeetingDate = v })
}

// SetSupportEndDate sets the support end date; nil clears it
func (s *Session) SetSupportEndDate(date *time.Time) error {
	return s.editDraft(func(d *rules.Draft) { d.SupportEndDate = dateOnly(date) })
}

func (s *Session) SetNextSteps(v string) error {
	return s.editDraft(func(d *rules.Draft) { d.NextSteps = v })
}

func (s *Session) SetAgenda(v string) error {
	return s.editDraft(func(d *rules.Draft) { d.Agenda = v })
}

func (s *Session) SetRiskAndAction(v string) error {
	return s.editDraft(func(d *rules.Draft) { d.RiskAndAction = v })
}

func (s *Session) SetReason(v string) error {
	return s.editDraft(func(d *rules.Draft) { d.Reason = v })
}

func (s *Session) SetSupportPlan(v string) error {
	return s.editDraft(func(d *rules.Draft) { d.SupportPlan = v })
}

func (s *Session) editDraft(fn func(d *rules.Draft)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable(); err != nil {
		return err
	}
	fn(&s.draft)
	return nil
}

// checkEditable reports whether the draft may change; mu must be held.
func (s *Session) checkEditable() error {
	if s.busy {
		return ErrBusy
	}
	switch s.machine.State() {
	case workflow.StateReviewing:
		return nil
	case workflow.StateConfirmingDowngrade:
		return ErrConfirmationPending
	default:
		return ErrNotReviewing
	}
}

func (s *Session) statusAllowed(status string) bool {
	values := entity.ReviewedStatuses
	if len(s.statusOptions) > 0 {
		values = make([]string, 0, len(s.statusOptions))
		for _, o := range s.statusOptions {
			values = append(values, o.Value)
		}
	}
	for _, v := range values {
		if v == status {
			return true
		}
	}
	return false
}

func (s *Session) parseDate(v string, layouts ...string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, v, s.now().Location()); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: date %q", ErrInvalidValue, v)
}

func meetingAllowed(status, value string) bool {
	for _, o := range rules.MeetingOptions(status) {
		if o.Value == value {
			return true
		}
	}
	return false
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := rules.DateOnly(*t)
	return &d
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
