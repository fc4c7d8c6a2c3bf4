package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"go.uber.org/zap"
)

// PicklistRepository implements port.PicklistRepository
type PicklistRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPicklistRepository creates a new picklist repository
func NewPicklistRepository(db *sql.DB, logger *zap.Logger) port.PicklistRepository {
	return &PicklistRepository{
		db:     db,
		logger: logger,
	}
}

// GetOptions returns the active options of a field path in display order
func (r *PicklistRepository) GetOptions(ctx context.Context, fieldPath string) ([]entity.PicklistOption, error) {
	query := `
		SELECT value, label
		FROM picklist_values
		WHERE field_path = ? AND active = 1
		ORDER BY sort_order, value
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, fieldPath)
	if err != nil {
		r.logger.Error("Failed to get picklist options", zap.String("field_path", fieldPath), zap.Error(err))
		return nil, fmt.Errorf("failed to get picklist options: %w", err)
	}
	defer rows.Close()

	opts := make([]entity.PicklistOption, 0)
	for rows.Next() {
		var o entity.PicklistOption
		if err := rows.Scan(&o.Value, &o.Label); err != nil {
			return nil, fmt.Errorf("failed to scan picklist option: %w", err)
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// Upsert inserts or relabels an option
func (r *PicklistRepository) Upsert(ctx context.Context, fieldPath string, opt entity.PicklistOption, sortOrder int) error {
	query := `
		INSERT INTO picklist_values (field_path, value, label, sort_order)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (field_path, value) DO UPDATE SET
			label = excluded.label,
			sort_order = excluded.sort_order,
			active = 1
	`

	if _, err := executorFor(ctx, r.db).ExecContext(ctx, query, fieldPath, opt.Value, opt.Label, sortOrder); err != nil {
		return fmt.Errorf("failed to upsert picklist option: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.PicklistRepository = (*PicklistRepository)(nil)
