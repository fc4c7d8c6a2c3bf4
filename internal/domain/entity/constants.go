package entity

// Project status values governing the review rules
const (
	ProjectStatusInDevelopment = "In Development"
	ProjectStatusGoLive        = "Go Live"
	ProjectStatusClosed        = "Closed"
)

// Picklist sentinels never offered as project statuses
const (
	PicklistValueNone = "None"
	PicklistValueOpen = "Open"
)

// ProjectStatusField is the picklist path for project status options.
const ProjectStatusField = "Opportunity.Project_Status__c"

// Next meeting scheduled values
const (
	MeetingYes             = "Yes"
	MeetingNo              = "No"
	MeetingMaybe           = "Maybe"
	MeetingCallNotRequired = "Call Not Required"
)

// Mode is the session mode requested from the backend.
type Mode string

const (
	ModeView   Mode = "view"
	ModeUpdate Mode = "update"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeView || m == ModeUpdate
}

// Status filters
const (
	FilterAll           = "All"
	FilterDueToday      = "Due Today"
	FilterInDevelopment = ProjectStatusInDevelopment
	FilterGoLive        = ProjectStatusGoLive
	FilterClosed        = ProjectStatusClosed
)

// ReviewedStatuses are the project statuses that produce review tasks.
var ReviewedStatuses = []string{
	ProjectStatusInDevelopment,
	ProjectStatusGoLive,
	ProjectStatusClosed,
}

// MeetingScheduledValues lists every follow-up value in display order.
var MeetingScheduledValues = []string{
	MeetingYes,
	MeetingNo,
	MeetingMaybe,
	MeetingCallNotRequired,
}

// InsertSuccess is the backend reply for an accepted task insert.
const InsertSuccess = "success"
