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

// OpportunityRepository implements port.OpportunityRepository
type OpportunityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOpportunityRepository creates a new opportunity repository
func NewOpportunityRepository(db *sql.DB, logger *zap.Logger) port.OpportunityRepository {
	return &OpportunityRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an opportunity
func (r *OpportunityRepository) Create(ctx context.Context, opp *port.Opportunity) error {
	query := `
		INSERT INTO opportunities (id, name, account_id, manager_id, project_status, is_priority)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		opp.ID,
		opp.Name,
		nullString(opp.AccountID),
		opp.ManagerID,
		opp.ProjectStatus,
		boolInt(opp.IsPriority),
	)
	if err != nil {
		r.logger.Error("Failed to create opportunity", zap.String("id", opp.ID), zap.Error(err))
		return fmt.Errorf("failed to create opportunity: %w", err)
	}
	return nil
}

// GetByID retrieves an opportunity, or nil when it does not exist
func (r *OpportunityRepository) GetByID(ctx context.Context, id string) (*port.Opportunity, error) {
	query := `
		SELECT id, name, account_id, manager_id, project_status, is_priority
		FROM opportunities
		WHERE id = ?
	`

	var opp port.Opportunity
	var accountID sql.NullString
	err := executorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&opp.ID,
		&opp.Name,
		&accountID,
		&opp.ManagerID,
		&opp.ProjectStatus,
		&opp.IsPriority,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get opportunity", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}

	opp.AccountID = accountID.String
	return &opp, nil
}

// UpdateStatus sets the project status of an opportunity
func (r *OpportunityRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE opportunities
		SET project_status = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := executorFor(ctx, r.db).ExecContext(ctx, query, status, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update opportunity status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("opportunity %s not found", id)
	}
	return nil
}

// QueueIDs returns the opportunity IDs of a review queue, priority first
// then by name. Due Today keeps opportunities whose latest follow-up date
// has arrived or is missing; update mode skips opportunities already
// reviewed today.
func (r *OpportunityRepository) QueueIDs(ctx context.Context, q port.QueueQuery) ([]string, error) {
	today := q.Today.Format(DateLayout)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(entity.ReviewedStatuses)), ", ")

	var sb strings.Builder
	fmt.Fprintf(&sb, `
		SELECT o.id
		FROM opportunities o
		WHERE o.manager_id = ?
			AND o.project_status IN (%s)`, placeholders)

	args := []interface{}{q.ManagerID}
	args = append(args, reviewedStatusArgs()...)

	switch q.StatusFilter {
	case entity.FilterAll, "":
	case entity.FilterDueToday:
		sb.WriteString(`
			AND substr(COALESCE((
				SELECT t.next_meeting_date
				FROM project_tasks t
				WHERE t.opportunity_id = o.id
				ORDER BY t.task_date DESC
				LIMIT 1
			), ''), 1, 10) <= ?`)
		args = append(args, today)
	case entity.FilterInDevelopment, entity.FilterGoLive, entity.FilterClosed:
		sb.WriteString(`
			AND o.project_status = ?`)
		args = append(args, q.StatusFilter)
	default:
		return nil, fmt.Errorf("unknown status filter %q", q.StatusFilter)
	}

	if q.Mode == entity.ModeUpdate {
		sb.WriteString(`
			AND NOT EXISTS (
				SELECT 1 FROM project_tasks t
				WHERE t.opportunity_id = o.id AND t.task_date = ?
			)`)
		args = append(args, today)
	}

	sb.WriteString(`
		ORDER BY o.is_priority DESC, o.name ASC`)

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, sb.String(), args...)
	if err != nil {
		r.logger.Error("Failed to query task queue",
			zap.String("manager_id", q.ManagerID),
			zap.String("status_filter", q.StatusFilter),
			zap.Error(err))
		return nil, fmt.Errorf("failed to query task queue: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan opportunity id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Verify interface compliance
var _ port.OpportunityRepository = (*OpportunityRepository)(nil)
