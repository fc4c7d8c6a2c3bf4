package entity

import "time"

// Task is one day's status-review record for a project (opportunity).
// A Task with an empty RecordID is virtual: it was synthesised from the
// opportunity and has not been persisted yet.
type Task struct {
	RecordID        string `json:"recordId,omitempty"`
	OpportunityID   string `json:"opportunityId"`
	OpportunityName string `json:"opportunityName,omitempty"`
	AccountID       string `json:"accountId,omitempty"`

	OppProjectStatus string `json:"oppProjectStatus"`

	// Follow-up
	NextMeetingScheduled string     `json:"nextMeetingScheduled,omitempty"`
	NextMeetingDate      *time.Time `json:"nextMeetingDate,omitempty"`
	NextAgenda           string     `json:"nextAgenda,omitempty"`

	NextSteps     string `json:"nextSteps,omitempty"`
	RiskAndAction string `json:"riskAndAction,omitempty"`
	Reason        string `json:"reason,omitempty"`

	// Go Live / Closed support
	SupportPlan    string     `json:"supportPlan,omitempty"`
	SupportEndDate *time.Time `json:"supportEndDate,omitempty"`

	// Provenance copied from the predecessor when the record is written
	PreviousTaskID  string     `json:"previousTaskId,omitempty"`
	PreviousStep    string     `json:"previousStep,omitempty"`
	PreviousAgenda  string     `json:"previousAgenda,omitempty"`
	LastMeetingDate *time.Time `json:"lastMeetingDate,omitempty"`
	PreviousDayDate *time.Time `json:"previousDayDate,omitempty"`

	IsOpportunityPriorityRecord bool `json:"isOpportunityPriorityRecord"`
	IsVirtual                   bool `json:"isVirtual,omitempty"`
	Fulfilled                   bool `json:"fulfilled,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// IsPersisted reports whether the task exists in the backend.
func (t *Task) IsPersisted() bool {
	return t != nil && t.RecordID != "" && !t.IsVirtual
}

// Clone returns a copy that shares no pointers with t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.NextMeetingDate = cloneTime(t.NextMeetingDate)
	c.SupportEndDate = cloneTime(t.SupportEndDate)
	c.LastMeetingDate = cloneTime(t.LastMeetingDate)
	c.PreviousDayDate = cloneTime(t.PreviousDayDate)
	return &c
}

// TaskDetail is the snapshot pair returned for one queue entry: the day's
// existing record (if any) and the most recent prior record.
type TaskDetail struct {
	Current  *Task `json:"current"`
	Previous *Task `json:"previous"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
