package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

// ErrTaskNotFound is returned when a task id does not exist
var ErrTaskNotFound = errors.New("task not found")

// ErrColumnNotEditable is returned by UpdateField for columns outside the
// inline-edit whitelist
var ErrColumnNotEditable = errors.New("column cannot be edited")

// EditableColumns are the task columns UpdateField may write
var EditableColumns = map[string]bool{
	"next_steps":      true,
	"next_agenda":     true,
	"risk_and_action": true,
	"reason":          true,
	"support_plan":    true,
}

const taskColumns = `
	id, opportunity_id, task_date, opp_project_status,
	next_meeting_scheduled, next_meeting_date, next_agenda,
	next_steps, risk_and_action, reason,
	support_plan, support_end_date,
	previous_task_id, previous_step, previous_agenda,
	last_meeting_date, previous_day_date,
	is_priority, fulfilled, created_at`

// ProjectTaskRepository implements port.ProjectTaskRepository
type ProjectTaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewProjectTaskRepository creates a new project task repository. now
// stamps created_at and decides the task day; nil means time.Now.
func NewProjectTaskRepository(db *sql.DB, logger *zap.Logger, now func() time.Time) port.ProjectTaskRepository {
	if now == nil {
		now = time.Now
	}
	return &ProjectTaskRepository{
		db:     db,
		logger: logger,
		now:    now,
	}
}

// Create inserts task and assigns its RecordID. The task is dated by its
// CreatedAt, or by the current time when that is zero.
func (r *ProjectTaskRepository) Create(ctx context.Context, task *entity.Task) error {
	query := `
		INSERT INTO project_tasks (
			id, opportunity_id, task_date, opp_project_status,
			next_meeting_scheduled, next_meeting_date, next_agenda,
			next_steps, risk_and_action, reason,
			support_plan, support_end_date,
			previous_task_id, previous_step, previous_agenda,
			last_meeting_date, previous_day_date,
			is_priority, fulfilled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := task.CreatedAt
	if now.IsZero() {
		now = r.now()
	}
	id := uuid.NewString()
	stamp := now.UTC().Format(time.RFC3339)

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		id,
		task.OpportunityID,
		now.Format(DateLayout),
		task.OppProjectStatus,
		nullString(task.NextMeetingScheduled),
		nullDateTime(task.NextMeetingDate),
		nullString(task.NextAgenda),
		nullString(task.NextSteps),
		nullString(task.RiskAndAction),
		nullString(task.Reason),
		nullString(task.SupportPlan),
		nullDate(task.SupportEndDate),
		nullString(task.PreviousTaskID),
		nullString(task.PreviousStep),
		nullString(task.PreviousAgenda),
		nullDateTime(task.LastMeetingDate),
		nullDateTime(task.PreviousDayDate),
		boolInt(task.IsOpportunityPriorityRecord),
		boolInt(task.Fulfilled),
		stamp,
		stamp,
	)
	if err != nil {
		r.logger.Error("Failed to create task",
			zap.String("opportunity_id", task.OpportunityID),
			zap.Error(err))
		return fmt.Errorf("failed to create task: %w", err)
	}

	task.RecordID = id
	task.IsVirtual = false
	task.CreatedAt = now
	return nil
}

// Update rewrites the review fields of an existing task
func (r *ProjectTaskRepository) Update(ctx context.Context, task *entity.Task) error {
	query := `
		UPDATE project_tasks SET
			opp_project_status = ?,
			next_meeting_scheduled = ?, next_meeting_date = ?, next_agenda = ?,
			next_steps = ?, risk_and_action = ?, reason = ?,
			support_plan = ?, support_end_date = ?,
			previous_task_id = ?, previous_step = ?, previous_agenda = ?,
			last_meeting_date = ?, previous_day_date = ?,
			updated_at = ?
		WHERE id = ?
	`

	res, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		task.OppProjectStatus,
		nullString(task.NextMeetingScheduled),
		nullDateTime(task.NextMeetingDate),
		nullString(task.NextAgenda),
		nullString(task.NextSteps),
		nullString(task.RiskAndAction),
		nullString(task.Reason),
		nullString(task.SupportPlan),
		nullDate(task.SupportEndDate),
		nullString(task.PreviousTaskID),
		nullString(task.PreviousStep),
		nullString(task.PreviousAgenda),
		nullDateTime(task.LastMeetingDate),
		nullDateTime(task.PreviousDayDate),
		r.now().UTC().Format(time.RFC3339),
		task.RecordID,
	)
	if err != nil {
		r.logger.Error("Failed to update task", zap.String("id", task.RecordID), zap.Error(err))
		return fmt.Errorf("failed to update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, task.RecordID)
	}
	return nil
}

// GetByID retrieves a task, or nil when it does not exist
func (r *ProjectTaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM project_tasks WHERE id = ?`
	return r.queryOne(ctx, query, id)
}

// GetForDay returns the opportunity's task dated day, or nil
func (r *ProjectTaskRepository) GetForDay(ctx context.Context, opportunityID string, day time.Time) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM project_tasks
		WHERE opportunity_id = ? AND task_date = ?`
	return r.queryOne(ctx, query, opportunityID, day.Format(DateLayout))
}

// GetLatestBefore returns the opportunity's most recent task dated before
// day, or nil
func (r *ProjectTaskRepository) GetLatestBefore(ctx context.Context, opportunityID string, day time.Time) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM project_tasks
		WHERE opportunity_id = ? AND task_date < ?
		ORDER BY task_date DESC
		LIMIT 1`
	return r.queryOne(ctx, query, opportunityID, day.Format(DateLayout))
}

// MarkFulfilled flags a task as followed up
func (r *ProjectTaskRepository) MarkFulfilled(ctx context.Context, id string) error {
	query := `UPDATE project_tasks SET fulfilled = 1, updated_at = ? WHERE id = ?`

	res, err := executorFor(ctx, r.db).ExecContext(ctx, query, r.now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to mark task fulfilled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

// UpdateField writes one whitelisted column of a task
func (r *ProjectTaskRepository) UpdateField(ctx context.Context, id, column, value string) error {
	if !EditableColumns[column] {
		return fmt.Errorf("%w: %s", ErrColumnNotEditable, column)
	}

	// column is whitelisted above
	query := fmt.Sprintf(`UPDATE project_tasks SET %s = ?, updated_at = ? WHERE id = ?`, column)

	res, err := executorFor(ctx, r.db).ExecContext(ctx, query, nullString(value), r.now().UTC().Format(time.RFC3339), id)
	if err != nil {
		r.logger.Error("Failed to update task field",
			zap.String("id", id),
			zap.String("column", column),
			zap.Error(err))
		return fmt.Errorf("failed to update task field: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

func (r *ProjectTaskRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*entity.Task, error) {
	task, err := scanTask(executorFor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func scanTask(row *sql.Row) (*entity.Task, error) {
	var t entity.Task
	var taskDate, createdAt string
	var scheduled, agenda, steps, risk, reason, plan sql.NullString
	var prevID, prevStep, prevAgenda sql.NullString
	var meetingDate, supportEnd, lastMeeting, prevDay sql.NullString

	err := row.Scan(
		&t.RecordID,
		&t.OpportunityID,
		&taskDate,
		&t.OppProjectStatus,
		&scheduled,
		&meetingDate,
		&agenda,
		&steps,
		&risk,
		&reason,
		&plan,
		&supportEnd,
		&prevID,
		&prevStep,
		&prevAgenda,
		&lastMeeting,
		&prevDay,
		&t.IsOpportunityPriorityRecord,
		&t.Fulfilled,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	t.NextMeetingScheduled = scheduled.String
	t.NextMeetingDate = parseDate(meetingDate)
	t.NextAgenda = agenda.String
	t.NextSteps = steps.String
	t.RiskAndAction = risk.String
	t.Reason = reason.String
	t.SupportPlan = plan.String
	t.SupportEndDate = parseDate(supportEnd)
	t.PreviousTaskID = prevID.String
	t.PreviousStep = prevStep.String
	t.PreviousAgenda = prevAgenda.String
	t.LastMeetingDate = parseDate(lastMeeting)
	t.PreviousDayDate = parseDate(prevDay)
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		t.CreatedAt = ts
	}
	return &t, nil
}

// Verify interface compliance
var _ port.ProjectTaskRepository = (*ProjectTaskRepository)(nil)
