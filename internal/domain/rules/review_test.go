package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

var fixedNow = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := fixedNow.AddDate(0, 0, days)
	return &t
}

func TestIsAfterToday(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"tomorrow morning", time.Date(2025, 3, 13, 0, 5, 0, 0, time.UTC), true},
		{"later today", time.Date(2025, 3, 12, 23, 59, 0, 0, time.UTC), false},
		{"earlier today", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), false},
		{"yesterday", time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC), false},
		{"tomorrow written in another zone", time.Date(2025, 3, 13, 0, 0, 0, 0, time.FixedZone("PST", -8*3600)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAfterToday(tt.date, fixedNow))
		})
	}
}

func TestDeriveDraft(t *testing.T) {
	previous := &entity.Task{
		RecordID:             "T-1",
		NextMeetingScheduled: entity.MeetingYes,
		NextAgenda:           "Demo the release",
		NextSteps:            "Ship build",
		RiskAndAction:        "Vendor delay",
		Reason:               "n/a",
	}

	t.Run("future meeting pre-populates follow-up", func(t *testing.T) {
		p := previous.Clone()
		p.NextMeetingDate = at(1)

		d := DeriveDraft(p, fixedNow)

		assert.Equal(t, entity.MeetingYes, d.NextMeetingScheduled)
		require.NotNil(t, d.NextMeetingDate)
		assert.True(t, d.NextMeetingDate.Equal(*p.NextMeetingDate))
		assert.Equal(t, "Demo the release", d.Agenda)
		assert.Empty(t, d.NextSteps)
		assert.Empty(t, d.RiskAndAction)
		assert.Empty(t, d.Reason)
	})

	t.Run("past meeting starts blank", func(t *testing.T) {
		p := previous.Clone()
		p.NextMeetingDate = at(-1)

		assert.Equal(t, Draft{}, DeriveDraft(p, fixedNow))
	})

	t.Run("meeting today starts blank", func(t *testing.T) {
		p := previous.Clone()
		p.NextMeetingDate = at(0)

		assert.Equal(t, Draft{}, DeriveDraft(p, fixedNow))
	})

	t.Run("missing date or task starts blank", func(t *testing.T) {
		assert.Equal(t, Draft{}, DeriveDraft(previous, fixedNow))
		assert.Equal(t, Draft{}, DeriveDraft(nil, fixedNow))
	})

	t.Run("draft does not alias previous date", func(t *testing.T) {
		p := previous.Clone()
		p.NextMeetingDate = at(2)

		d := DeriveDraft(p, fixedNow)
		*d.NextMeetingDate = fixedNow

		assert.True(t, p.NextMeetingDate.After(fixedNow))
	})
}

func TestVisibilityFor_Table(t *testing.T) {
	type vis = Visibility
	cnr := entity.MeetingCallNotRequired
	tests := []struct {
		status    string
		scheduled string
		want      vis
	}{
		{entity.ProjectStatusInDevelopment, entity.MeetingYes, vis{NextMeetingDate: true, NextSteps: true, Agenda: true, RiskAndAction: true}},
		{entity.ProjectStatusInDevelopment, entity.MeetingNo, vis{NextMeetingDate: true, NextSteps: true, Agenda: true, RiskAndAction: true, Reason: true}},
		{entity.ProjectStatusInDevelopment, entity.MeetingMaybe, vis{NextMeetingDate: true, NextSteps: true, Agenda: true, RiskAndAction: true}},
		{entity.ProjectStatusInDevelopment, cnr, vis{NextSteps: true, Agenda: true, RiskAndAction: true, Reason: true}},
		{entity.ProjectStatusGoLive, entity.MeetingYes, vis{NextMeetingDate: true, NextSteps: true, Agenda: true, RiskAndAction: true, SupportPlan: true, SupportEndDate: true}},
		{entity.ProjectStatusGoLive, entity.MeetingNo, vis{NextMeetingDate: true, NextSteps: true, Reason: true}},
		{entity.ProjectStatusGoLive, entity.MeetingMaybe, vis{NextMeetingDate: true, NextSteps: true}},
		{entity.ProjectStatusGoLive, cnr, vis{NextSteps: true, Reason: true}},
		{entity.ProjectStatusClosed, entity.MeetingYes, vis{NextMeetingDate: true, Agenda: true, SupportPlan: true, SupportEndDate: true}},
		{entity.ProjectStatusClosed, entity.MeetingNo, vis{NextMeetingDate: true, Reason: true}},
		{entity.ProjectStatusClosed, entity.MeetingMaybe, vis{NextMeetingDate: true}},
		{entity.ProjectStatusClosed, cnr, vis{Reason: true}},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.scheduled, func(t *testing.T) {
			got := VisibilityFor(tt.status, tt.scheduled, false)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, VisibilityFor(tt.status, tt.scheduled, false), "lookup must be deterministic")
		})
	}
}

func TestVisibilityFor_Consistency(t *testing.T) {
	for _, status := range entity.ReviewedStatuses {
		for _, scheduled := range entity.MeetingScheduledValues {
			v := VisibilityFor(status, scheduled, false)

			noFollowUp := scheduled == entity.MeetingNo || scheduled == entity.MeetingCallNotRequired
			assert.Equal(t, noFollowUp, v.Reason, "%s/%s reason", status, scheduled)

			wantSupport := status != entity.ProjectStatusInDevelopment && scheduled == entity.MeetingYes
			assert.Equal(t, wantSupport, v.SupportPlan, "%s/%s support plan", status, scheduled)
			assert.Equal(t, v.SupportPlan, v.SupportEndDate)

			skipped := VisibilityFor(status, scheduled, true)
			assert.False(t, skipped.SupportPlan)
			assert.False(t, skipped.SupportEndDate)
		}
	}
}

// Every required field must be reachable: a draft with only the visible
// fields filled passes validation.
func TestVisibilityFor_VisibleFieldsSatisfyValidation(t *testing.T) {
	for _, status := range entity.ReviewedStatuses {
		for _, scheduled := range entity.MeetingScheduledValues {
			v := VisibilityFor(status, scheduled, false)
			d := Draft{NextMeetingScheduled: scheduled}
			if v.NextMeetingDate {
				d.NextMeetingDate = at(3)
			}
			if v.NextSteps {
				d.NextSteps = "next"
			}
			if v.Agenda {
				d.Agenda = "agenda"
			}
			if v.RiskAndAction {
				d.RiskAndAction = "risk"
			}
			if v.Reason {
				d.Reason = "reason"
			}
			if v.SupportPlan {
				d.SupportPlan = "plan"
			}
			if v.SupportEndDate {
				d.SupportEndDate = at(30)
			}

			assert.NoError(t, Validate(status, d), "%s/%s", status, scheduled)
		}
	}
}

func completeDraft() Draft {
	return Draft{
		NextMeetingScheduled: entity.MeetingYes,
		NextMeetingDate:      at(3),
		NextSteps:            "Finish UAT",
		Agenda:               "Sign-off",
		RiskAndAction:        "None outstanding",
		SupportPlan:          "Hypercare for two weeks",
		SupportEndDate:       at(14),
	}
}

func ruleOf(t *testing.T, err error) int {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Rule
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		mutate   func(d *Draft)
		wantRule int
	}{
		{"complete in development draft", entity.ProjectStatusInDevelopment, func(d *Draft) {}, 0},
		{"missing follow-up choice", entity.ProjectStatusInDevelopment, func(d *Draft) { d.NextMeetingScheduled = "" }, 1},
		{"missing risk in development", entity.ProjectStatusInDevelopment, func(d *Draft) { d.RiskAndAction = "  " }, 2},
		{"risk optional for go live", entity.ProjectStatusGoLive, func(d *Draft) { d.RiskAndAction = "" }, 0},
		{"missing next steps", entity.ProjectStatusGoLive, func(d *Draft) { d.NextSteps = "" }, 3},
		{"next steps optional when closed", entity.ProjectStatusClosed, func(d *Draft) { d.NextSteps = "" }, 0},
		{"missing agenda in development", entity.ProjectStatusInDevelopment, func(d *Draft) { d.Agenda = "" }, 4},
		{"missing meeting date", entity.ProjectStatusInDevelopment, func(d *Draft) { d.NextMeetingDate = nil }, 5},
		{"call not required needs reason", entity.ProjectStatusInDevelopment, func(d *Draft) {
			d.NextMeetingScheduled = entity.MeetingCallNotRequired
			d.NextMeetingDate = nil
		}, 6},
		{"call not required with reason", entity.ProjectStatusInDevelopment, func(d *Draft) {
			d.NextMeetingScheduled = entity.MeetingCallNotRequired
			d.NextMeetingDate = nil
			d.Reason = "Customer on holiday"
		}, 0},
		{"go live yes needs support plan", entity.ProjectStatusGoLive, func(d *Draft) { d.SupportPlan = "" }, 7},
		{"go live yes needs support end date", entity.ProjectStatusGoLive, func(d *Draft) { d.SupportEndDate = nil }, 7},
		{"closed yes needs agenda", entity.ProjectStatusClosed, func(d *Draft) { d.Agenda = "" }, 8},
		{"closed no needs reason", entity.ProjectStatusClosed, func(d *Draft) {
			d.NextMeetingScheduled = entity.MeetingNo
		}, 9},
		{"closed no with reason", entity.ProjectStatusClosed, func(d *Draft) {
			d.NextMeetingScheduled = entity.MeetingNo
			d.Reason = "Project handed over"
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := completeDraft()
			tt.mutate(&d)

			err := Validate(tt.status, d)
			if tt.wantRule == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantRule, ruleOf(t, err))
		})
	}
}

func TestValidate_FirstFailureWins(t *testing.T) {
	d := completeDraft()
	d.NextSteps = ""
	d.NextMeetingDate = nil

	err := Validate(entity.ProjectStatusInDevelopment, d)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 3, verr.Rule)
	assert.Equal(t, "Next steps are required.", verr.Message)
}

func TestCoerceFollowUp(t *testing.T) {
	t.Run("yes today is unscheduled", func(t *testing.T) {
		s, d := CoerceFollowUp(entity.MeetingYes, at(0), fixedNow)
		assert.Empty(t, s)
		assert.Nil(t, d)
	})

	t.Run("yes tomorrow is kept", func(t *testing.T) {
		s, d := CoerceFollowUp(entity.MeetingYes, at(1), fixedNow)
		assert.Equal(t, entity.MeetingYes, s)
		require.NotNil(t, d)
	})

	t.Run("call not required drops date", func(t *testing.T) {
		s, d := CoerceFollowUp(entity.MeetingCallNotRequired, at(5), fixedNow)
		assert.Equal(t, entity.MeetingCallNotRequired, s)
		assert.Nil(t, d)
	})

	t.Run("maybe in the past is untouched", func(t *testing.T) {
		s, d := CoerceFollowUp(entity.MeetingMaybe, at(-2), fixedNow)
		assert.Equal(t, entity.MeetingMaybe, s)
		require.NotNil(t, d)
	})
}

func TestBuildRecord(t *testing.T) {
	previous := &entity.Task{
		RecordID:         "T-9",
		OpportunityID:    "OPP-1",
		AccountID:        "ACC-1",
		OppProjectStatus: entity.ProjectStatusInDevelopment,
		NextSteps:        "Prepare demo",
		NextAgenda:       "Walkthrough",
		NextMeetingDate:  at(-1),
	}

	t.Run("meeting today is coerced in payload", func(t *testing.T) {
		d := completeDraft()
		d.NextMeetingDate = at(0)

		rec, err := BuildRecord(nil, previous, d, fixedNow)

		require.NoError(t, err)
		assert.Empty(t, rec.NextMeetingScheduled)
		assert.Nil(t, rec.NextMeetingDate)
	})

	t.Run("new record references predecessor", func(t *testing.T) {
		rec, err := BuildRecord(&entity.Task{OpportunityID: "OPP-1", IsVirtual: true}, previous, completeDraft(), fixedNow)

		require.NoError(t, err)
		assert.Empty(t, rec.RecordID)
		assert.Equal(t, "T-9", rec.PreviousTaskID)
		assert.Equal(t, "OPP-1", rec.OpportunityID)
		assert.Equal(t, "ACC-1", rec.AccountID)
		assert.Equal(t, "Prepare demo", rec.PreviousStep)
		assert.Equal(t, "Walkthrough", rec.PreviousAgenda)
		require.NotNil(t, rec.LastMeetingDate)
		assert.True(t, rec.LastMeetingDate.Equal(*previous.NextMeetingDate))
		require.NotNil(t, rec.PreviousDayDate)
		assert.True(t, rec.PreviousDayDate.Equal(fixedNow))
		assert.Equal(t, entity.MeetingYes, rec.NextMeetingScheduled)
	})

	t.Run("today's persisted record is updated in place", func(t *testing.T) {
		current := &entity.Task{RecordID: "T-10", OpportunityID: "OPP-1", OppProjectStatus: entity.ProjectStatusInDevelopment}
		working := previous.Clone()
		working.OppProjectStatus = entity.ProjectStatusGoLive

		rec, err := BuildRecord(current, working, completeDraft(), fixedNow)

		require.NoError(t, err)
		assert.Equal(t, "T-10", rec.RecordID)
		assert.Equal(t, entity.ProjectStatusGoLive, rec.OppProjectStatus)
	})

	t.Run("no task loaded", func(t *testing.T) {
		_, err := BuildRecord(nil, nil, completeDraft(), fixedNow)
		assert.ErrorIs(t, err, ErrNoTask)
	})
}

func TestOptions(t *testing.T) {
	t.Run("closed and go live restrict follow-up choices", func(t *testing.T) {
		assert.Len(t, MeetingOptions(entity.ProjectStatusGoLive), 2)
		assert.Len(t, MeetingOptions(entity.ProjectStatusClosed), 2)
		assert.Len(t, MeetingOptions(entity.ProjectStatusInDevelopment), 4)
	})

	t.Run("filters depend on mode", func(t *testing.T) {
		assert.True(t, IsFilterAllowed(entity.ModeView, entity.FilterAll))
		assert.False(t, IsFilterAllowed(entity.ModeView, entity.FilterDueToday))
		assert.True(t, IsFilterAllowed(entity.ModeUpdate, entity.FilterDueToday))
		assert.False(t, IsFilterAllowed(entity.ModeUpdate, entity.FilterAll))

		opts := StatusFilterOptions(entity.ModeUpdate, entity.FilterGoLive)
		require.Len(t, opts, 4)
		assert.True(t, opts[2].Selected)
		assert.False(t, opts[0].Selected)
	})

	t.Run("sentinels are dropped", func(t *testing.T) {
		in := []entity.PicklistOption{
			{Value: entity.PicklistValueNone, Label: "--None--"},
			{Value: entity.PicklistValueOpen, Label: "Open"},
			{Value: entity.ProjectStatusGoLive, Label: "Go Live"},
		}
		out := FilterStatusOptions(in)
		require.Len(t, out, 1)
		assert.Equal(t, "Go Live", StatusLabel(out, entity.ProjectStatusGoLive))
		assert.Equal(t, "Unknown", StatusLabel(out, "Unknown"))
	})
}
