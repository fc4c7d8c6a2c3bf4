package rules

import (
	"fmt"
	"strings"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

// ValidationError reports the first required-field rule a draft fails.
type ValidationError struct {
	Rule    int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation rule %d (%s): %s", e.Rule, e.Field, e.Message)
}

type rule struct {
	number  int
	field   string
	message string
	fails   func(status string, d Draft) bool
}

// Checked in order; the first failure wins.
var rules = []rule{
	{1, "next_meeting_scheduled", "Next meeting scheduled is required.", func(_ string, d Draft) bool {
		return blank(d.NextMeetingScheduled)
	}},
	{2, "risk_and_action", "Risk and action is required.", func(status string, d Draft) bool {
		return status == entity.ProjectStatusInDevelopment && blank(d.RiskAndAction)
	}},
	{3, "next_steps", "Next steps are required.", func(status string, d Draft) bool {
		return status != entity.ProjectStatusClosed && blank(d.NextSteps)
	}},
	{4, "agenda", "Agenda is required.", func(status string, d Draft) bool {
		return !isClosedOrGoLive(status) && blank(d.Agenda)
	}},
	{5, "next_meeting_date", "Next meeting date is required.", func(_ string, d Draft) bool {
		return d.NextMeetingScheduled != entity.MeetingCallNotRequired && d.NextMeetingDate == nil
	}},
	{6, "reason", "Reason is required.", func(_ string, d Draft) bool {
		return d.NextMeetingScheduled == entity.MeetingCallNotRequired && blank(d.Reason)
	}},
	{7, "support", "Meeting date, support end date and support plan are required.", func(status string, d Draft) bool {
		if status != entity.ProjectStatusGoLive || d.NextMeetingScheduled != entity.MeetingYes {
			return false
		}
		return d.NextMeetingDate == nil || d.SupportEndDate == nil || blank(d.SupportPlan)
	}},
	{8, "agenda", "Meeting date and agenda are required.", func(status string, d Draft) bool {
		if status != entity.ProjectStatusClosed || d.NextMeetingScheduled != entity.MeetingYes {
			return false
		}
		return d.NextMeetingDate == nil || blank(d.Agenda)
	}},
	{9, "reason", "Reason is required when no follow-up is scheduled.", func(status string, d Draft) bool {
		return status == entity.ProjectStatusClosed && d.NextMeetingScheduled == entity.MeetingNo && blank(d.Reason)
	}},
}

// Validate runs the rule set against d for the given project status and
// returns a *ValidationError for the first failing rule, or nil.
func Validate(status string, d Draft) error {
	for _, r := range rules {
		if r.fails(status, d) {
			return &ValidationError{Rule: r.number, Field: r.field, Message: r.message}
		}
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
