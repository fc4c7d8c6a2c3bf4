package rules

import (
	"errors"
	"time"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

// ErrNoTask is returned when a record is built without any loaded task.
var ErrNoTask = errors.New("no task loaded")

// CoerceFollowUp applies the future-date-only rule: a "Yes" follow-up whose
// date is missing or not strictly after today is submitted as unscheduled,
// and "Call Not Required" never carries a date.
func CoerceFollowUp(scheduled string, date *time.Time, now time.Time) (string, *time.Time) {
	switch scheduled {
	case entity.MeetingCallNotRequired:
		return scheduled, nil
	case entity.MeetingYes:
		if date == nil || !IsAfterToday(*date, now) {
			return "", nil
		}
	}
	if date == nil {
		return scheduled, nil
	}
	v := *date
	return scheduled, &v
}

// BuildRecord derives the record submitted for the task under review.
// Today's persisted record is updated in place; otherwise a new record is
// created. Provenance always points at previous, the predecessor.
func BuildRecord(current, previous *entity.Task, d Draft, now time.Time) (*entity.Task, error) {
	source := previous
	if current.IsPersisted() {
		source = current
	}
	if source == nil {
		source = current
	}
	if source == nil {
		return nil, ErrNoTask
	}

	predecessor := previous
	if predecessor == nil {
		predecessor = source
	}

	status := source.OppProjectStatus
	if previous != nil && previous.OppProjectStatus != "" {
		status = previous.OppProjectStatus
	}

	stamp := now
	record := &entity.Task{
		OpportunityID:               source.OpportunityID,
		OpportunityName:             source.OpportunityName,
		AccountID:                   source.AccountID,
		OppProjectStatus:            status,
		NextSteps:                   d.NextSteps,
		NextAgenda:                  d.Agenda,
		RiskAndAction:               d.RiskAndAction,
		Reason:                      d.Reason,
		SupportPlan:                 d.SupportPlan,
		PreviousStep:                predecessor.NextSteps,
		PreviousAgenda:              predecessor.NextAgenda,
		PreviousDayDate:             &stamp,
		IsOpportunityPriorityRecord: source.IsOpportunityPriorityRecord,
	}
	if current.IsPersisted() {
		record.RecordID = current.RecordID
	}
	if previous != nil {
		record.PreviousTaskID = previous.RecordID
	}
	if predecessor.NextMeetingDate != nil {
		v := *predecessor.NextMeetingDate
		record.LastMeetingDate = &v
	}
	if d.SupportEndDate != nil {
		v := *d.SupportEndDate
		record.SupportEndDate = &v
	}

	record.NextMeetingScheduled, record.NextMeetingDate = CoerceFollowUp(d.NextMeetingScheduled, d.NextMeetingDate, now)
	return record, nil
}
