// Package container provides dependency injection and lifecycle management
// for the project status review service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
)

// Config holds what the container needs to wire the review service. The
// HTTP listener is configured separately by its binary.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Review session configuration
	Review ReviewConfig

	// Worker configuration
	Worker WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir replaces the embedded migrations when set
	MigrationsDir string
}

// ReviewConfig holds review session settings.
type ReviewConfig struct {
	DefaultViewFilter   string
	DefaultUpdateFilter string

	// Location decides which calendar day is "today"
	Location *time.Location

	// BackendTimeout bounds each HTTP-triggered session action
	BackendTimeout time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	FulfillmentQueueSize   int
	FulfillmentMaxAttempts int
	FulfillmentRetryDelay  time.Duration
	FulfillmentTimeout     time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/pm_review.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Review: ReviewConfig{
			DefaultViewFilter:   entity.FilterAll,
			DefaultUpdateFilter: entity.FilterDueToday,
			Location:            time.Local,
			BackendTimeout:      30 * time.Second,
		},
		Worker: WorkerConfig{
			FulfillmentQueueSize:   256,
			FulfillmentMaxAttempts: 3,
			FulfillmentRetryDelay:  2 * time.Second,
			FulfillmentTimeout:     30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Review.Location == nil {
		return fmt.Errorf("review.location is required")
	}
	if c.Worker.FulfillmentQueueSize < 1 {
		return fmt.Errorf("worker.fulfillment_queue_size must be at least 1")
	}
	return nil
}
