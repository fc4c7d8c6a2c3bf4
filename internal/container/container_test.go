package container

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/domain/event"
	"github.com/garyjia/pm-status-review/internal/domain/workflow"
	"github.com/garyjia/pm-status-review/internal/infrastructure/backend"
	"github.com/garyjia/pm-status-review/pkg/database"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = database.MemoryPath
	cfg.Review.Location = time.UTC
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(), nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Database.Path = ""
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start")

	health := c.Health()
	assert.True(t, health.Overall, "%+v", health.Components)
	assert.Contains(t, health.Components, "sessions")

	c.Dispatcher().Notify(ctx, event.NewEvent(event.TypeRequestFailed, "s-1", "timed out"))
	c.Dispatcher().Notify(ctx, event.NewEvent(event.TypeTaskSaved, "s-1", "saved"))
	assert.Contains(t, c.Health().Components["dispatcher"].Message, "error notices: 1")

	_, err = backend.SeedDemoData(ctx, c.Repositories(), c.Now())
	require.NoError(t, err)

	s := c.Registry().Create()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.SelectManager(ctx, "pm-001", entity.ModeView))

	v := s.Snapshot()
	assert.Equal(t, workflow.StateReviewing, v.Phase)
	assert.Len(t, v.Queue, 3)
	assert.Equal(t, "Avery Chen", v.ManagerName)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close(), "second close")
	assert.Error(t, c.Start(ctx), "start after close")
}
