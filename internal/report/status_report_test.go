package report

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

type mockSource struct {
	managers []entity.ProjectManager
	queues   map[string][]string
	details  map[string]*entity.TaskDetail
	queueErr error
}

func (m *mockSource) GetManagerList(context.Context) ([]entity.ProjectManager, error) {
	return m.managers, nil
}

func (m *mockSource) GetTaskQueue(_ context.Context, managerID string, mode entity.Mode, filter string) ([]string, error) {
	if m.queueErr != nil {
		return nil, m.queueErr
	}
	if mode != entity.ModeUpdate || filter != entity.FilterDueToday {
		return nil, errors.New("unexpected queue request")
	}
	return m.queues[managerID], nil
}

func (m *mockSource) GetTaskDetail(_ context.Context, id string) (*entity.TaskDetail, error) {
	return m.details[id], nil
}

var asOf = time.Date(2025, 3, 12, 17, 0, 0, 0, time.UTC)

func newSource() *mockSource {
	meeting := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	return &mockSource{
		managers: []entity.ProjectManager{
			{ID: "pm-001", Name: "Avery Chen", TotalTasks: 3, UpdatedToday: 1},
			{ID: "pm-002", Name: "Ops/Support: EMEA [north] and the very long team", TotalTasks: 1},
			{ID: "pm-003", Name: "avery chen", TotalTasks: 0},
		},
		queues: map[string][]string{"pm-001": {"opp-1001", "opp-1003"}},
		details: map[string]*entity.TaskDetail{
			"opp-1001": {
				Current: &entity.Task{OpportunityID: "opp-1001", OpportunityName: "Billing Platform Migration", OppProjectStatus: entity.ProjectStatusInDevelopment, IsOpportunityPriorityRecord: true},
				Previous: &entity.Task{
					RecordID:        "rec-1",
					NextSteps:       "Finish data mapping",
					NextMeetingDate: &meeting,
					CreatedAt:       asOf.AddDate(0, 0, -1),
				},
			},
			"opp-1003": {
				Current: &entity.Task{OpportunityID: "opp-1003", OpportunityName: "Warehouse Scanner Rollout", OppProjectStatus: entity.ProjectStatusGoLive},
			},
		},
	}
}

func TestGenerator_Build(t *testing.T) {
	g := NewGenerator(newSource(), zap.NewNop())

	f, summary, err := g.Build(context.Background(), asOf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 3, summary.Managers)
	assert.Equal(t, 2, summary.DueTasks)
	assert.Equal(t, []string{SummarySheet, "Avery Chen", "Ops-Support- EMEA -north- and t", "avery chen (2)"}, summary.Sheets)
	assert.Equal(t, summary.Sheets, f.GetSheetList())

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 4)
	assert.Equal(t, []string{"pm-001", "Avery Chen", "3", "1", "2", "2"}, rows[1])
	assert.Equal(t, "0", rows[2][5])

	queue, err := f.GetRows("Avery Chen")
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, []string{"opp-1001", "Billing Platform Migration", "In Development", "Yes", "2025-03-11", "2025-03-11", "Finish data mapping"}, queue[1])
	assert.Equal(t, []string{"opp-1003", "Warehouse Scanner Rollout", "Go Live"}, queue[2])
}

func TestGenerator_WriteFile(t *testing.T) {
	g := NewGenerator(newSource(), zap.NewNop())
	path := filepath.Join(t.TempDir(), "out", DefaultFileName(asOf))

	_, err := g.WriteFile(context.Background(), asOf, path)
	require.NoError(t, err)
	assert.Equal(t, "status_review_20250312.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Avery Chen", v)
}

func TestGenerator_Render(t *testing.T) {
	data, summary, err := NewGenerator(newSource(), zap.NewNop()).Render(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Managers)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, summary.Sheets, f.GetSheetList())
}

func TestGenerator_SourceFailure(t *testing.T) {
	src := newSource()
	src.queueErr = errors.New("timeout")

	_, _, err := NewGenerator(src, zap.NewNop()).Build(context.Background(), asOf)
	assert.ErrorIs(t, err, src.queueErr)
}

func TestMeetingTime(t *testing.T) {
	assert.Equal(t, "2025-03-20", meetingTime(time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-03-20 14:30", meetingTime(time.Date(2025, 3, 20, 14, 30, 0, 0, time.UTC)))
}
