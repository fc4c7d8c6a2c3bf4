package container

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/application/dispatcher"
	"github.com/garyjia/pm-status-review/internal/application/review"
	"github.com/garyjia/pm-status-review/internal/domain/event"
	"github.com/garyjia/pm-status-review/internal/infrastructure/backend"
	"github.com/garyjia/pm-status-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/pm-status-review/internal/infrastructure/worker"
	"github.com/garyjia/pm-status-review/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger
	now    func() time.Time

	// Infrastructure - Data
	sqlDB        *database.DB
	db           *sqlite.DB
	repositories *backend.Repositories
	backend      *backend.LocalBackend

	// Application
	dispatcher *dispatcher.Dispatcher
	registry   *review.Registry
	failures   atomic.Int64

	// Workers
	workers     *worker.WorkerManager
	fulfillment *worker.FulfillmentWorker

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
		now:    Clock(cfg.Review.Location),
	}, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Task backend
// 3. Notice dispatcher
// 4. Workers
// 5. Session registry
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("path", c.config.Database.Path))

	// Step 2: Initialize the task backend
	c.backend = backend.NewLocalBackend(*c.repositories, c.now, c.logger)
	c.logger.Info("Task backend initialized")

	// Step 3: Initialize dispatcher
	if err := c.initDispatcher(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.logger.Info("Dispatcher initialized")

	// Step 4: Initialize and start workers
	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started", zap.Strings("workers", c.workers.Names()))

	// Step 5: Initialize the session registry
	if err := c.initRegistry(); err != nil {
		return fmt.Errorf("failed to initialize session registry: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop workers (reverse of step 4)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 2: Close dispatcher (reverse of step 3)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close database (reverse of step 1)
	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health pings the database and reports each component. Overall is false
// when any component is unhealthy or not yet started.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	checks := map[string]func() ComponentHealth{
		"database":   c.databaseHealth,
		"workers":    c.workerHealth,
		"dispatcher": c.dispatcherHealth,
		"sessions":   c.sessionHealth,
	}

	status := &HealthStatus{Overall: true, Components: make(map[string]ComponentHealth, len(checks))}
	for name, check := range checks {
		h := check()
		status.Components[name] = h
		status.Overall = status.Overall && h.Healthy
	}
	return status
}

func (c *Container) databaseHealth() ComponentHealth {
	if c.sqlDB == nil {
		return notInitialized()
	}
	if err := c.sqlDB.Ping(); err != nil {
		return ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return ComponentHealth{Healthy: true}
}

func (c *Container) workerHealth() ComponentHealth {
	if c.workers == nil {
		return notInitialized()
	}
	msg := fmt.Sprintf("workers: %s", strings.Join(c.workers.Names(), ", "))
	if c.fulfillment != nil {
		processed, failed, dropped := c.fulfillment.Stats()
		msg += fmt.Sprintf("; fulfilled: %d, failed: %d, dropped: %d", processed, failed, dropped)
	}
	return ComponentHealth{Healthy: c.workers.IsRunning(), Message: msg}
}

func (c *Container) dispatcherHealth() ComponentHealth {
	if c.dispatcher == nil {
		return notInitialized()
	}
	return ComponentHealth{
		Healthy: true,
		Message: fmt.Sprintf("handlers: %d, error notices: %d", len(c.dispatcher.Handlers()), c.failures.Load()),
	}
}

func (c *Container) sessionHealth() ComponentHealth {
	if c.registry == nil {
		return notInitialized()
	}
	return ComponentHealth{Healthy: true, Message: fmt.Sprintf("live sessions: %d", c.registry.Len())}
}

func notInitialized() ComponentHealth {
	return ComponentHealth{Message: "not initialized"}
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	// Use provider to create database bundle
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	// Use provider to create repositories
	repos, err := ProvideRepositories(dbBundle, c.now, c.logger)
	if err != nil {
		return err
	}
	c.repositories = &repos

	return nil
}

// initDispatcher creates the notice dispatcher.
func (c *Container) initDispatcher() error {
	d, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	d.Subscribe("failure_counter", dispatcher.AtLevel(event.LevelError), func(context.Context, *event.Event) error {
		c.failures.Add(1)
		return nil
	})
	c.dispatcher = d
	return nil
}

// initWorkers creates and starts the background workers.
func (c *Container) initWorkers() error {
	bundle, err := ProvideWorkers(&WorkerDeps{
		Backend:   c.backend,
		Notifier:  c.dispatcher,
		WorkerCfg: &c.config.Worker,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}

	c.workers = bundle.Manager
	c.fulfillment = bundle.Fulfillment

	// Start all workers
	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// initRegistry creates the session registry.
func (c *Container) initRegistry() error {
	registry, err := ProvideRegistry(&RegistryDeps{
		Backend:   c.backend,
		Notifier:  c.dispatcher,
		Fulfiller: c.fulfillment,
		ReviewCfg: &c.config.Review,
		Now:       c.now,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.registry = registry
	return nil
}

// DB returns the transaction manager.
func (c *Container) DB() *sqlite.DB {
	return c.db
}

// Repositories returns the repository bundle.
func (c *Container) Repositories() backend.Repositories {
	if c.repositories == nil {
		return backend.Repositories{}
	}
	return *c.repositories
}

// Backend returns the task backend.
func (c *Container) Backend() *backend.LocalBackend {
	return c.backend
}

// Dispatcher returns the notice dispatcher.
func (c *Container) Dispatcher() *dispatcher.Dispatcher {
	return c.dispatcher
}

// Registry returns the session registry.
func (c *Container) Registry() *review.Registry {
	return c.registry
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Now returns the current time in the configured location.
func (c *Container) Now() time.Time {
	return c.now()
}

// Logger returns the logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the configuration.
func (c *Container) Config() *Config {
	return c.config
}
