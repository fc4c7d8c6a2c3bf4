package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/infrastructure/persistence/sqlite"
)

// DateLayout is how calendar dates are stored
const DateLayout = "2006-01-02"

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// executorFor returns the transaction carried by ctx, or db
func executorFor(ctx context.Context, db *sql.DB) executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

func reviewedStatusArgs() []interface{} {
	args := make([]interface{}, 0, len(entity.ReviewedStatuses))
	for _, s := range entity.ReviewedStatuses {
		args = append(args, s)
	}
	return args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(DateLayout), Valid: true}
}

// nullDateTime stores a moment, such as a follow-up meeting, as RFC 3339.
// Its first ten characters are the calendar date, so SQL can compare it
// against DateLayout values with substr.
func nullDateTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

// parseDate reads a date or an RFC 3339 moment
func parseDate(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, DateLayout} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
