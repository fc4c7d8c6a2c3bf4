package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/pm_review.db", cfg.Database.Path)
	assert.Equal(t, entity.FilterAll, cfg.Review.DefaultViewFilter)
	assert.Equal(t, entity.FilterDueToday, cfg.Review.DefaultUpdateFilter)
	assert.Equal(t, 3, cfg.Review.FulfillmentAttempts)
	assert.Equal(t, 2*time.Second, cfg.Review.FulfillmentDelay)

	sc := cfg.ToServerConfig()
	assert.Equal(t, 10*time.Second, sc.ShutdownTimeout)
	assert.Equal(t, cfg.Review.BackendTimeout, sc.RequestTimeout)
	assert.Equal(t, "release", sc.Mode)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  path: /tmp/review.db
review:
  default_update_filter: Go Live
  timezone: Europe/Berlin
logger:
  format: console
`)
	t.Setenv("PMREVIEW_LOG_LEVEL", "debug")
	t.Setenv("PMREVIEW_DB_PATH", "/var/lib/pmreview/review.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/pmreview/review.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, entity.FilterGoLive, cfg.Review.DefaultUpdateFilter)

	loc, err := cfg.Review.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	cc := cfg.ToContainerConfig()
	assert.Equal(t, "/var/lib/pmreview/review.db", cc.Database.Path)
	assert.Equal(t, loc, cc.Review.Location)
	assert.Equal(t, 256, cc.Worker.FulfillmentQueueSize)
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv("PMREVIEW_PORT", "7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"due today is not a view filter", "review:\n  default_view_filter: Due Today\n"},
		{"all is not an update filter", "review:\n  default_update_filter: All\n"},
		{"unknown timezone", "review:\n  timezone: Mars/Olympus\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"bad log format", "logger:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
