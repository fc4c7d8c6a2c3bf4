package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/pkg/database"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	conn, err := database.New(database.Config{Path: database.MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Exec(`CREATE TABLE counters (name TEXT PRIMARY KEY, n INTEGER NOT NULL)`)
	require.NoError(t, err)
	return NewDB(conn.DB, zap.NewNop())
}

func count(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM counters`).Scan(&n))
	return n
}

func TestWithTransaction_NestedJoinsOuter(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		outer := TxFromContext(ctx)
		require.NotNil(t, outer)

		err := db.WithTransaction(ctx, func(ctx context.Context) error {
			assert.Same(t, outer, TxFromContext(ctx))
			_, err := TxFromContext(ctx).ExecContext(ctx, `INSERT INTO counters VALUES ('a', 1)`)
			return err
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, count(t, db), "inner write rolls back with the outer transaction")
}

func TestWithTransaction_Commit(t *testing.T) {
	db := setupDB(t)

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		_, err := TxFromContext(ctx).ExecContext(ctx, `INSERT INTO counters VALUES ('a', 1)`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db))
	assert.Nil(t, TxFromContext(context.Background()))
}

func TestWithTransaction_RetriesBusy(t *testing.T) {
	db := setupDB(t)

	calls := 0
	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return fmt.Errorf("write: %w", sqlite3.Error{Code: sqlite3.ErrBusy})
		}
		_, err := TxFromContext(ctx).ExecContext(ctx, `INSERT INTO counters VALUES ('a', 1)`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, count(t, db))
}

func TestWithTransaction_GivesUpWhenBusy(t *testing.T) {
	db := setupDB(t)

	calls := 0
	err := db.WithTransaction(context.Background(), func(context.Context) error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrLocked}
	})
	assert.True(t, IsBusy(err))
	assert.Equal(t, busyAttempts, calls)
}

func TestErrorClassification(t *testing.T) {
	db := setupDB(t)

	_, err := db.Exec(`INSERT INTO counters VALUES ('a', 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO counters VALUES ('a', 2)`)
	require.Error(t, err)

	assert.True(t, IsConstraint(fmt.Errorf("create: %w", err)))
	assert.False(t, IsBusy(err))
	assert.False(t, IsConstraint(errors.New("plain")))
	assert.False(t, IsBusy(nil))
}
