package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"go.uber.org/zap"
)

// ManagerRepository implements port.ManagerRepository
type ManagerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewManagerRepository creates a new project manager repository
func NewManagerRepository(db *sql.DB, logger *zap.Logger) port.ManagerRepository {
	return &ManagerRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a project manager
func (r *ManagerRepository) Create(ctx context.Context, manager *entity.ProjectManager) error {
	query := `INSERT INTO project_managers (id, name) VALUES (?, ?)`

	if _, err := executorFor(ctx, r.db).ExecContext(ctx, query, manager.ID, manager.Name); err != nil {
		r.logger.Error("Failed to create manager", zap.String("id", manager.ID), zap.Error(err))
		return fmt.Errorf("failed to create manager: %w", err)
	}
	return nil
}

// List returns active managers ordered by name
func (r *ManagerRepository) List(ctx context.Context) ([]*entity.ProjectManager, error) {
	query := `
		SELECT id, name
		FROM project_managers
		WHERE active = 1
		ORDER BY name
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list managers: %w", err)
	}
	defer rows.Close()

	var managers []*entity.ProjectManager
	for rows.Next() {
		var m entity.ProjectManager
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan manager: %w", err)
		}
		managers = append(managers, &m)
	}
	return managers, rows.Err()
}

// ListWithStats returns active managers with the number of reviewable
// opportunities and how many of them already have a task for today
func (r *ManagerRepository) ListWithStats(ctx context.Context, today time.Time) ([]*entity.ProjectManager, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(entity.ReviewedStatuses)), ", ")
	query := fmt.Sprintf(`
		SELECT m.id, m.name, COUNT(o.id), COUNT(t.id)
		FROM project_managers m
		LEFT JOIN opportunities o
			ON o.manager_id = m.id AND o.project_status IN (%s)
		LEFT JOIN project_tasks t
			ON t.opportunity_id = o.id AND t.task_date = ?
		WHERE m.active = 1
		GROUP BY m.id, m.name
		ORDER BY m.name
	`, placeholders)

	args := append(reviewedStatusArgs(), today.Format(DateLayout))
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list managers with stats", zap.Error(err))
		return nil, fmt.Errorf("failed to list managers with stats: %w", err)
	}
	defer rows.Close()

	var managers []*entity.ProjectManager
	for rows.Next() {
		var m entity.ProjectManager
		if err := rows.Scan(&m.ID, &m.Name, &m.TotalTasks, &m.UpdatedToday); err != nil {
			return nil, fmt.Errorf("failed to scan manager: %w", err)
		}
		managers = append(managers, &m)
	}
	return managers, rows.Err()
}

// Verify interface compliance
var _ port.ManagerRepository = (*ManagerRepository)(nil)
