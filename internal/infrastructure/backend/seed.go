package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

// SeedSummary counts the rows written by SeedDemoData
type SeedSummary struct {
	Managers      int
	Opportunities int
	Tasks         int
}

type demoOpportunity struct {
	opp       port.Opportunity
	lastSteps string
	// follow-up offset in days from today of the last review; nil for none
	meetingIn *int
}

func days(n int) *int { return &n }

// SeedDemoData writes two managers with a handful of opportunities and one
// earlier review per opportunity, relative to now. It runs in a single
// transaction and fails if the data already exists.
func SeedDemoData(ctx context.Context, repos Repositories, now time.Time) (*SeedSummary, error) {
	managers := []*entity.ProjectManager{
		{ID: "pm-001", Name: "Avery Chen"},
		{ID: "pm-002", Name: "Jordan Patel"},
	}
	opportunities := []demoOpportunity{
		{
			opp:       port.Opportunity{ID: "opp-1001", Name: "Billing Platform Migration", AccountID: "acc-01", ManagerID: "pm-001", ProjectStatus: entity.ProjectStatusInDevelopment, IsPriority: true},
			lastSteps: "Finish data mapping",
			meetingIn: days(-1),
		},
		{
			opp:       port.Opportunity{ID: "opp-1002", Name: "Customer Portal Refresh", AccountID: "acc-02", ManagerID: "pm-001", ProjectStatus: entity.ProjectStatusInDevelopment},
			lastSteps: "Run UAT with pilot group",
			meetingIn: days(3),
		},
		{
			opp:       port.Opportunity{ID: "opp-1003", Name: "Warehouse Scanner Rollout", AccountID: "acc-03", ManagerID: "pm-001", ProjectStatus: entity.ProjectStatusGoLive},
			lastSteps: "Monitor hypercare tickets",
		},
		{
			opp:       port.Opportunity{ID: "opp-2001", Name: "Payroll Integration", AccountID: "acc-04", ManagerID: "pm-002", ProjectStatus: entity.ProjectStatusClosed},
			lastSteps: "Handover to support",
			meetingIn: days(0),
		},
		{
			opp:       port.Opportunity{ID: "opp-2002", Name: "Analytics Dashboard", AccountID: "acc-05", ManagerID: "pm-002", ProjectStatus: entity.ProjectStatusInDevelopment, IsPriority: true},
			lastSteps: "Agree KPI definitions",
		},
	}

	summary := &SeedSummary{}
	yesterday := now.AddDate(0, 0, -1)

	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, m := range managers {
			if err := repos.Managers.Create(ctx, m); err != nil {
				return err
			}
			summary.Managers++
		}

		for _, d := range opportunities {
			opp := d.opp
			if err := repos.Opportunities.Create(ctx, &opp); err != nil {
				return err
			}
			summary.Opportunities++

			task := &entity.Task{
				OpportunityID:        opp.ID,
				OppProjectStatus:     opp.ProjectStatus,
				NextSteps:            d.lastSteps,
				NextMeetingScheduled: entity.MeetingNo,
				Reason:               "No meeting planned",
				CreatedAt:            yesterday,
			}
			if d.meetingIn != nil {
				date := time.Date(now.Year(), now.Month(), now.Day()+*d.meetingIn, 0, 0, 0, 0, time.UTC)
				task.NextMeetingScheduled = entity.MeetingYes
				task.NextMeetingDate = &date
				task.NextAgenda = "Status walkthrough"
				task.Reason = ""
			}
			if err := repos.Tasks.Create(ctx, task); err != nil {
				return err
			}
			summary.Tasks++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed demo data: %w", err)
	}
	return summary, nil
}
