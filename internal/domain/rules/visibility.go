package rules

import "github.com/garyjia/pm-status-review/internal/domain/entity"

// Visibility tells which draft fields are shown for a task.
type Visibility struct {
	NextMeetingDate bool `json:"next_meeting_date"`
	NextSteps       bool `json:"next_steps"`
	Agenda          bool `json:"agenda"`
	RiskAndAction   bool `json:"risk_and_action"`
	Reason          bool `json:"reason"`
	SupportPlan     bool `json:"support_plan"`
	SupportEndDate  bool `json:"support_end_date"`
}

// VisibilityFor is the single lookup for field visibility, keyed by the
// authoritative project status, the follow-up choice, and whether support
// has been waived.
func VisibilityFor(status, scheduled string, skipSupport bool) Visibility {
	closedOrGoLive := isClosedOrGoLive(status)
	yes := scheduled == entity.MeetingYes
	support := closedOrGoLive && yes && !skipSupport

	return Visibility{
		NextMeetingDate: scheduled != "" && scheduled != entity.MeetingCallNotRequired,
		NextSteps:       status != entity.ProjectStatusClosed,
		Agenda:          !closedOrGoLive || yes,
		RiskAndAction:   status == entity.ProjectStatusInDevelopment || (status == entity.ProjectStatusGoLive && yes),
		Reason:          scheduled == entity.MeetingNo || scheduled == entity.MeetingCallNotRequired,
		SupportPlan:     support,
		SupportEndDate:  support,
	}
}

func isClosedOrGoLive(status string) bool {
	return status == entity.ProjectStatusClosed || status == entity.ProjectStatusGoLive
}
