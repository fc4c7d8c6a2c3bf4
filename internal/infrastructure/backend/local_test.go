package backend

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/pm-status-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/pm-status-review/pkg/database"
)

var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func setupBackend(t *testing.T) (*LocalBackend, Repositories) {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: database.MemoryPath}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).Run())

	clock := func() time.Time { return testNow }
	repos := Repositories{
		Managers:      repository.NewManagerRepository(db.DB, logger),
		Opportunities: repository.NewOpportunityRepository(db.DB, logger),
		Tasks:         repository.NewProjectTaskRepository(db.DB, logger, clock),
		Picklists:     repository.NewPicklistRepository(db.DB, logger),
		Tx:            sqlite.NewDB(db.DB, logger),
	}

	summary, err := SeedDemoData(context.Background(), repos, testNow)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Managers)
	require.Equal(t, 5, summary.Tasks)

	return NewLocalBackend(repos, clock, logger), repos
}

func payload(t *testing.T, records ...*entity.Task) string {
	t.Helper()
	b, err := json.Marshal(records)
	require.NoError(t, err)
	return string(b)
}

func TestLocalBackend_GetTaskQueue(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mgr    string
		mode   entity.Mode
		filter string
		want   []string
	}{
		{"due today skips future follow-ups", "pm-001", entity.ModeUpdate, entity.FilterDueToday, []string{"opp-1001", "opp-1003"}},
		{"view all orders priority then name", "pm-001", entity.ModeView, entity.FilterAll, []string{"opp-1001", "opp-1002", "opp-1003"}},
		{"status filter", "pm-001", entity.ModeUpdate, entity.FilterGoLive, []string{"opp-1003"}},
		{"meeting today is due", "pm-002", entity.ModeUpdate, entity.FilterDueToday, []string{"opp-2002", "opp-2001"}},
		{"unknown manager", "pm-999", entity.ModeView, entity.FilterAll, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := b.GetTaskQueue(ctx, tt.mgr, tt.mode, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := b.GetTaskQueue(ctx, "pm-001", entity.ModeView, "Cancelled")
	assert.Error(t, err)
}

func TestLocalBackend_GetTaskDetail(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	detail, err := b.GetTaskDetail(ctx, "opp-1001")
	require.NoError(t, err)

	require.NotNil(t, detail.Current)
	assert.True(t, detail.Current.IsVirtual)
	assert.False(t, detail.Current.IsPersisted())
	assert.Equal(t, "Billing Platform Migration", detail.Current.OpportunityName)
	assert.True(t, detail.Current.IsOpportunityPriorityRecord)

	require.NotNil(t, detail.Previous)
	assert.True(t, detail.Previous.IsPersisted())
	assert.Equal(t, "Finish data mapping", detail.Previous.NextSteps)
	assert.Equal(t, entity.MeetingYes, detail.Previous.NextMeetingScheduled)
	require.NotNil(t, detail.Previous.NextMeetingDate)
	assert.Equal(t, "2025-03-11", detail.Previous.NextMeetingDate.Format(repository.DateLayout))

	_, err = b.GetTaskDetail(ctx, "opp-404")
	assert.ErrorIs(t, err, ErrOpportunityNotFound)
}

func TestLocalBackend_ManagersAndOptions(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	managers, err := b.GetManagerList(ctx)
	require.NoError(t, err)
	require.Len(t, managers, 2)
	assert.Equal(t, "Avery Chen", managers[0].Name)
	assert.Equal(t, 3, managers[0].TotalTasks)
	assert.Equal(t, 0, managers[0].UpdatedToday)
	assert.Equal(t, 3, managers[0].Pending())

	opts, err := b.GetStatusOptions(ctx, entity.ProjectStatusField)
	require.NoError(t, err)
	require.Len(t, opts, 5)
	assert.Equal(t, entity.PicklistValueNone, opts[0].Value)
	assert.Equal(t, entity.ProjectStatusInDevelopment, opts[1].Value)
}

func TestLocalBackend_InsertTask(t *testing.T) {
	b, repos := setupBackend(t)
	ctx := context.Background()

	detail, err := b.GetTaskDetail(ctx, "opp-1001")
	require.NoError(t, err)

	record := &entity.Task{
		OpportunityID:        "opp-1001",
		OppProjectStatus:     entity.ProjectStatusGoLive,
		NextMeetingScheduled: entity.MeetingNo,
		NextSteps:            "Cut over on Friday",
		Reason:               "Launch week",
		PreviousTaskID:       detail.Previous.RecordID,
	}

	reply, err := b.InsertTask(ctx, payload(t, record))
	require.NoError(t, err)
	assert.Equal(t, entity.InsertSuccess, reply)

	opp, err := repos.Opportunities.GetByID(ctx, "opp-1001")
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectStatusGoLive, opp.ProjectStatus)

	// the opportunity leaves today's update queue
	ids, err := b.GetTaskQueue(ctx, "pm-001", entity.ModeUpdate, entity.FilterDueToday)
	require.NoError(t, err)
	assert.Equal(t, []string{"opp-1003"}, ids)

	managers, err := b.GetManagerList(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, managers[0].UpdatedToday)

	t.Run("second submission is a duplicate", func(t *testing.T) {
		reply, err := b.InsertTask(ctx, payload(t, record))
		require.NoError(t, err)
		assert.Equal(t, DuplicateWarning, reply)
	})

	t.Run("record id updates in place", func(t *testing.T) {
		detail, err := b.GetTaskDetail(ctx, "opp-1001")
		require.NoError(t, err)
		require.True(t, detail.Current.IsPersisted())

		update := detail.Current.Clone()
		update.NextSteps = "Cut over on Monday"
		reply, err := b.InsertTask(ctx, payload(t, update))
		require.NoError(t, err)
		assert.Equal(t, entity.InsertSuccess, reply)

		got, err := repos.Tasks.GetByID(ctx, update.RecordID)
		require.NoError(t, err)
		assert.Equal(t, "Cut over on Monday", got.NextSteps)
		assert.Equal(t, detail.Previous.RecordID, got.PreviousTaskID)
	})

	t.Run("invalid payloads", func(t *testing.T) {
		for _, p := range []string{"not json", "[]", `[{"opportunityId":""}]`} {
			_, err := b.InsertTask(ctx, p)
			assert.ErrorIs(t, err, ErrInvalidPayload, p)
		}
	})
}

func TestLocalBackend_MarkFulfilledAndUpdateField(t *testing.T) {
	b, repos := setupBackend(t)
	ctx := context.Background()

	detail, err := b.GetTaskDetail(ctx, "opp-1002")
	require.NoError(t, err)
	id := detail.Previous.RecordID

	require.NoError(t, b.MarkFulfilled(ctx, id))
	require.NoError(t, b.UpdateTaskField(ctx, id, "agenda", "Sign-off review"))

	got, err := repos.Tasks.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Fulfilled)
	assert.Equal(t, "Sign-off review", got.NextAgenda)

	assert.ErrorIs(t, b.UpdateTaskField(ctx, id, "opp_project_status", "Closed"), ErrUnknownField)
	assert.ErrorIs(t, b.MarkFulfilled(ctx, "missing"), repository.ErrTaskNotFound)
}
