package port

import (
	"context"
	"time"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

// QueueQuery selects the opportunities that make up a review queue
type QueueQuery struct {
	ManagerID    string
	Mode         entity.Mode
	StatusFilter string
	Today        time.Time
}

// ManagerRepository defines persistence operations for project managers
type ManagerRepository interface {
	Create(ctx context.Context, manager *entity.ProjectManager) error
	List(ctx context.Context) ([]*entity.ProjectManager, error)
	// ListWithStats fills TotalTasks and UpdatedToday for every manager
	ListWithStats(ctx context.Context, today time.Time) ([]*entity.ProjectManager, error)
}

// Opportunity is a project under review
type Opportunity struct {
	ID            string
	Name          string
	AccountID     string
	ManagerID     string
	ProjectStatus string
	IsPriority    bool
}

// OpportunityRepository defines persistence operations for opportunities
type OpportunityRepository interface {
	Create(ctx context.Context, opp *Opportunity) error
	GetByID(ctx context.Context, id string) (*Opportunity, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// QueueIDs returns opportunity IDs for the query, priority first
	QueueIDs(ctx context.Context, q QueueQuery) ([]string, error)
}

// ProjectTaskRepository defines persistence operations for review tasks
type ProjectTaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	Update(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, id string) (*entity.Task, error)
	// GetForDay returns the opportunity's task created on day, or nil
	GetForDay(ctx context.Context, opportunityID string, day time.Time) (*entity.Task, error)
	// GetLatestBefore returns the most recent task created before day, or nil
	GetLatestBefore(ctx context.Context, opportunityID string, day time.Time) (*entity.Task, error)
	MarkFulfilled(ctx context.Context, id string) error
	UpdateField(ctx context.Context, id, column, value string) error
}

// PicklistRepository defines read access to picklist metadata
type PicklistRepository interface {
	GetOptions(ctx context.Context, fieldPath string) ([]entity.PicklistOption, error)
	Upsert(ctx context.Context, fieldPath string, opt entity.PicklistOption, sortOrder int) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
