package config

import (
	"time"

	"github.com/garyjia/pm-status-review/internal/container"
	httpserver "github.com/garyjia/pm-status-review/internal/interfaces/http"
)

// ToContainerConfig maps the file configuration onto the container's.
// Call it on a validated Config; an unresolvable timezone falls back to
// local time.
func (c *Config) ToContainerConfig() *container.Config {
	loc, err := c.Review.Location()
	if err != nil {
		loc = time.Local
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Review: container.ReviewConfig{
			DefaultViewFilter:   c.Review.DefaultViewFilter,
			DefaultUpdateFilter: c.Review.DefaultUpdateFilter,
			Location:            loc,
			BackendTimeout:      c.Review.BackendTimeout,
		},
		Worker: container.WorkerConfig{
			FulfillmentQueueSize:   c.Review.FulfillmentQueue,
			FulfillmentMaxAttempts: c.Review.FulfillmentAttempts,
			FulfillmentRetryDelay:  c.Review.FulfillmentDelay,
			FulfillmentTimeout:     c.Review.BackendTimeout,
		},
	}
}

// ToServerConfig maps the server section onto the HTTP adapter's settings.
// Session actions share the review backend timeout.
func (c *Config) ToServerConfig() httpserver.ServerConfig {
	return httpserver.ServerConfig{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		RequestTimeout:  c.Review.BackendTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
		Mode:            c.Server.Mode,
	}
}
