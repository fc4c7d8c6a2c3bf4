// Package rules holds the business rules of a project status review:
// how a draft is derived from the previous task, which fields are visible
// for a project status, the ordered validation rules, and how the record
// submitted to the backend is built from a draft.
package rules

import (
	"time"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

// Draft is the editable form state for the task under review.
type Draft struct {
	NextMeetingScheduled string     `json:"next_meeting_scheduled"`
	NextMeetingDate      *time.Time `json:"next_meeting_date,omitempty"`
	NextSteps            string     `json:"next_steps"`
	Agenda               string     `json:"agenda"`
	RiskAndAction        string     `json:"risk_and_action"`
	Reason               string     `json:"reason"`
	SupportPlan          string     `json:"support_plan"`
	SupportEndDate       *time.Time `json:"support_end_date,omitempty"`

	// SkipSupport is set once the user has confirmed that a Go Live
	// project needs no further support follow-up.
	SkipSupport bool `json:"skip_support"`
}

// DeriveDraft builds the initial draft for a freshly loaded task. Follow-up
// fields carry over from previous only while its meeting is still ahead.
func DeriveDraft(previous *entity.Task, now time.Time) Draft {
	var d Draft
	if previous == nil || previous.NextMeetingDate == nil {
		return d
	}
	if !IsAfterToday(*previous.NextMeetingDate, now) {
		return d
	}

	d.NextMeetingScheduled = previous.NextMeetingScheduled
	date := *previous.NextMeetingDate
	d.NextMeetingDate = &date
	d.Agenda = previous.NextAgenda
	return d
}

// Clone returns a copy of d that shares no pointers.
func (d Draft) Clone() Draft {
	c := d
	if d.NextMeetingDate != nil {
		v := *d.NextMeetingDate
		c.NextMeetingDate = &v
	}
	if d.SupportEndDate != nil {
		v := *d.SupportEndDate
		c.SupportEndDate = &v
	}
	return c
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsAfterToday reports whether the calendar day of date is later than
// now's calendar day. Dates carry no meaningful time zone, so date's day is
// taken as written.
func IsAfterToday(date, now time.Time) bool {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).After(DateOnly(now))
}
