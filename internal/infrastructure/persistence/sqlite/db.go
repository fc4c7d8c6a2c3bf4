package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/application/port"
)

type txKeyType struct{}

var txKey txKeyType

const (
	busyAttempts = 3
	busyBackoff  = 50 * time.Millisecond
)

// DB runs unit-of-work transactions on the review database
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB wraps an open database
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     sqlDB,
		logger: logger,
	}
}

// WithTransaction runs fn inside a transaction carried by its context.
// Nested calls join the outer transaction. A transaction that fails to
// start or commit because the database is locked by another writer is
// retried from the beginning.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= busyAttempts; attempt++ {
		err = db.runOnce(ctx, fn)
		if !IsBusy(err) {
			return err
		}
		db.logger.Warn("Database busy, retrying transaction",
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * busyBackoff):
		}
	}
	return err
}

func (db *DB) runOnce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
	}()

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// TxFromContext returns the transaction started by WithTransaction, or nil
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey).(*sql.Tx)
	return tx
}

// IsBusy reports whether err is SQLite refusing a lock held by another
// connection
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// IsConstraint reports whether err is a uniqueness or foreign key violation
func IsConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

var _ port.TransactionManager = (*DB)(nil)
