// Package backend provides task backends for review sessions. LocalBackend
// serves the backend contract from the local SQLite database.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/infrastructure/persistence/sqlite"
)

// DuplicateWarning is returned by InsertTask when the opportunity already
// has a task for the day
const DuplicateWarning = "A task for this project has already been submitted today."

var (
	// ErrOpportunityNotFound is returned for an unknown queue id
	ErrOpportunityNotFound = errors.New("opportunity not found")

	// ErrInvalidPayload is returned for an InsertTask payload that is not a
	// non-empty JSON array of task records
	ErrInvalidPayload = errors.New("invalid task payload")

	// ErrUnknownField is returned by UpdateTaskField for fields that cannot
	// be edited inline
	ErrUnknownField = errors.New("unknown task field")

	errDuplicate = errors.New("duplicate task")
)

// fieldColumns maps inline-editable wire fields to task columns
var fieldColumns = map[string]string{
	"next_steps":      "next_steps",
	"agenda":          "next_agenda",
	"risk_and_action": "risk_and_action",
	"reason":          "reason",
	"support_plan":    "support_plan",
}

// Repositories groups the stores LocalBackend reads and writes
type Repositories struct {
	Managers      port.ManagerRepository
	Opportunities port.OpportunityRepository
	Tasks         port.ProjectTaskRepository
	Picklists     port.PicklistRepository
	Tx            port.TransactionManager
}

// LocalBackend implements port.TaskBackend on the local database
type LocalBackend struct {
	repos  Repositories
	now    func() time.Time
	logger *zap.Logger
}

// NewLocalBackend creates a local backend. now decides which day "today"
// is; nil means time.Now.
func NewLocalBackend(repos Repositories, now func() time.Time, logger *zap.Logger) *LocalBackend {
	if now == nil {
		now = time.Now
	}
	return &LocalBackend{
		repos:  repos,
		now:    now,
		logger: logger,
	}
}

// GetTaskQueue returns the opportunity ids to review
func (b *LocalBackend) GetTaskQueue(ctx context.Context, managerID string, mode entity.Mode, statusFilter string) ([]string, error) {
	ids, err := b.repos.Opportunities.QueueIDs(ctx, port.QueueQuery{
		ManagerID:    managerID,
		Mode:         mode,
		StatusFilter: statusFilter,
		Today:        b.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("get task queue: %w", err)
	}

	b.logger.Debug("Task queue loaded",
		zap.String("manager_id", managerID),
		zap.String("mode", string(mode)),
		zap.String("status_filter", statusFilter),
		zap.Int("count", len(ids)))
	return ids, nil
}

// GetTaskDetail returns today's task of the opportunity, or a virtual one
// built from the opportunity, together with the latest earlier task
func (b *LocalBackend) GetTaskDetail(ctx context.Context, taskID string) (*entity.TaskDetail, error) {
	opp, err := b.repos.Opportunities.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task detail: %w", err)
	}
	if opp == nil {
		return nil, fmt.Errorf("%w: %s", ErrOpportunityNotFound, taskID)
	}

	today := b.now()
	current, err := b.repos.Tasks.GetForDay(ctx, opp.ID, today)
	if err != nil {
		return nil, fmt.Errorf("get task detail: %w", err)
	}
	if current == nil {
		current = &entity.Task{
			OpportunityID:               opp.ID,
			OppProjectStatus:            opp.ProjectStatus,
			IsOpportunityPriorityRecord: opp.IsPriority,
			IsVirtual:                   true,
		}
	}

	previous, err := b.repos.Tasks.GetLatestBefore(ctx, opp.ID, today)
	if err != nil {
		return nil, fmt.Errorf("get task detail: %w", err)
	}

	for _, t := range []*entity.Task{current, previous} {
		if t != nil {
			t.OpportunityName = opp.Name
			t.AccountID = opp.AccountID
		}
	}

	return &entity.TaskDetail{Current: current, Previous: previous}, nil
}

// GetManagerList returns active managers with today's review counts
func (b *LocalBackend) GetManagerList(ctx context.Context) ([]entity.ProjectManager, error) {
	managers, err := b.repos.Managers.ListWithStats(ctx, b.now())
	if err != nil {
		return nil, fmt.Errorf("get manager list: %w", err)
	}

	out := make([]entity.ProjectManager, 0, len(managers))
	for _, m := range managers {
		out = append(out, *m)
	}
	return out, nil
}

// GetStatusOptions returns the picklist of fieldPath
func (b *LocalBackend) GetStatusOptions(ctx context.Context, fieldPath string) ([]entity.PicklistOption, error) {
	opts, err := b.repos.Picklists.GetOptions(ctx, fieldPath)
	if err != nil {
		return nil, fmt.Errorf("get status options: %w", err)
	}
	return opts, nil
}

// InsertTask stores the records of a JSON array payload in one
// transaction. A record with a RecordID updates that task; otherwise a new
// task is created for today unless one already exists, in which case
// DuplicateWarning is returned and nothing is written. The opportunity's
// project status follows the record.
func (b *LocalBackend) InsertTask(ctx context.Context, payload string) (string, error) {
	var records []*entity.Task
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("%w: no records", ErrInvalidPayload)
	}
	for _, rec := range records {
		if rec == nil || rec.OpportunityID == "" || rec.OppProjectStatus == "" {
			return "", fmt.Errorf("%w: opportunity and project status are required", ErrInvalidPayload)
		}
	}

	err := b.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, rec := range records {
			if err := b.storeRecord(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errDuplicate) {
		b.logger.Info("Duplicate task submission rejected",
			zap.String("opportunity_id", records[0].OpportunityID))
		return DuplicateWarning, nil
	}
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}

	b.logger.Info("Tasks stored", zap.Int("count", len(records)))
	return entity.InsertSuccess, nil
}

func (b *LocalBackend) storeRecord(ctx context.Context, rec *entity.Task) error {
	opp, err := b.repos.Opportunities.GetByID(ctx, rec.OpportunityID)
	if err != nil {
		return err
	}
	if opp == nil {
		return fmt.Errorf("%w: %s", ErrOpportunityNotFound, rec.OpportunityID)
	}

	if rec.RecordID != "" {
		existing, err := b.repos.Tasks.GetByID(ctx, rec.RecordID)
		if err != nil {
			return err
		}
		if existing == nil || existing.OpportunityID != rec.OpportunityID {
			return fmt.Errorf("%w: record %s does not belong to %s", ErrInvalidPayload, rec.RecordID, rec.OpportunityID)
		}
		if err := b.repos.Tasks.Update(ctx, rec); err != nil {
			return err
		}
	} else {
		existing, err := b.repos.Tasks.GetForDay(ctx, rec.OpportunityID, b.now())
		if err != nil {
			return err
		}
		if existing != nil {
			return errDuplicate
		}
		rec.IsOpportunityPriorityRecord = opp.IsPriority
		rec.CreatedAt = time.Time{}
		if err := b.repos.Tasks.Create(ctx, rec); err != nil {
			// another session stored the day's task between the check and the insert
			if sqlite.IsConstraint(err) {
				return errDuplicate
			}
			return err
		}
	}

	if opp.ProjectStatus != rec.OppProjectStatus {
		if err := b.repos.Opportunities.UpdateStatus(ctx, opp.ID, rec.OppProjectStatus); err != nil {
			return err
		}
		b.logger.Info("Opportunity status changed",
			zap.String("opportunity_id", opp.ID),
			zap.String("from", opp.ProjectStatus),
			zap.String("to", rec.OppProjectStatus))
	}
	return nil
}

// MarkFulfilled flags a predecessor task as followed up
func (b *LocalBackend) MarkFulfilled(ctx context.Context, recordID string) error {
	if err := b.repos.Tasks.MarkFulfilled(ctx, recordID); err != nil {
		return fmt.Errorf("mark fulfilled: %w", err)
	}
	return nil
}

// UpdateTaskField writes a single inline-editable field of a task
func (b *LocalBackend) UpdateTaskField(ctx context.Context, recordID, field, value string) error {
	column, ok := fieldColumns[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if err := b.repos.Tasks.UpdateField(ctx, recordID, column, value); err != nil {
		return fmt.Errorf("update task field: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.TaskBackend = (*LocalBackend)(nil)
