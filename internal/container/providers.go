// Package container provides dependency injection and lifecycle management
// for the project status review service.
package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/application/dispatcher"
	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/application/review"
	"github.com/garyjia/pm-status-review/internal/domain/event"
	"github.com/garyjia/pm-status-review/internal/infrastructure/backend"
	"github.com/garyjia/pm-status-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/pm-status-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/pm-status-review/internal/infrastructure/worker"
	"github.com/garyjia/pm-status-review/pkg/database"
	"github.com/garyjia/pm-status-review/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and brings its schema up to date.
// Migrations come from cfg.MigrationsDir when set, otherwise from the
// embedded set.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrations(cfg.MigrationsDir)
	} else {
		err = migrator.Run()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database bundle.
// now decides the task day.
func ProvideRepositories(bundle *DatabaseBundle, now func() time.Time, logger *zap.Logger) (backend.Repositories, error) {
	if bundle == nil || bundle.DB == nil {
		return backend.Repositories{}, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return backend.Repositories{}, fmt.Errorf("logger is required")
	}

	sqlDB := bundle.DB.DB
	return backend.Repositories{
		Managers:      repository.NewManagerRepository(sqlDB, logger),
		Opportunities: repository.NewOpportunityRepository(sqlDB, logger),
		Tasks:         repository.NewProjectTaskRepository(sqlDB, logger, now),
		Picklists:     repository.NewPicklistRepository(sqlDB, logger),
		Tx:            bundle.TransactionMgr,
	}, nil
}

// ProvideDispatcher creates the notice dispatcher with a handler that
// writes every notice to the log.
func ProvideDispatcher(logger *zap.Logger) (*dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger)),
	)
	d.Subscribe("notice_logger", dispatcher.Everything, noticeLogger(logger))
	return d, nil
}

func noticeLogger(logger *zap.Logger) dispatcher.Handler {
	return func(_ context.Context, evt *event.Event) error {
		fields := []zap.Field{
			zap.String("event_type", evt.Type.String()),
			zap.String("session_id", evt.SessionID),
			zap.String("message", evt.Message),
		}
		if len(evt.Payload) > 0 {
			fields = append(fields, zap.Any("payload", evt.Payload))
		}
		switch evt.Level {
		case event.LevelError:
			logger.Warn("Session notice", fields...)
		default:
			logger.Debug("Session notice", fields...)
		}
		return nil
	}
}

// WorkerDeps groups what the background workers need
type WorkerDeps struct {
	Backend   worker.FulfillmentBackend
	Notifier  port.Notifier
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// WorkerBundle holds the worker manager and the workers sessions talk to
type WorkerBundle struct {
	Manager     *worker.WorkerManager
	Fulfillment *worker.FulfillmentWorker
}

// ProvideWorkers creates and registers the background workers. The
// workers are not started.
func ProvideWorkers(deps *WorkerDeps) (*WorkerBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	cfg := worker.DefaultFulfillmentWorkerConfig()
	if deps.WorkerCfg.FulfillmentQueueSize > 0 {
		cfg.QueueSize = deps.WorkerCfg.FulfillmentQueueSize
	}
	if deps.WorkerCfg.FulfillmentMaxAttempts > 0 {
		cfg.MaxAttempts = deps.WorkerCfg.FulfillmentMaxAttempts
	}
	if deps.WorkerCfg.FulfillmentRetryDelay > 0 {
		cfg.RetryDelay = deps.WorkerCfg.FulfillmentRetryDelay
	}
	if deps.WorkerCfg.FulfillmentTimeout > 0 {
		cfg.RequestTimeout = deps.WorkerCfg.FulfillmentTimeout
	}

	fulfillment := worker.NewFulfillmentWorker(cfg, deps.Backend, deps.Notifier, deps.Logger)

	manager := worker.NewWorkerManager(deps.Logger)
	manager.Register(fulfillment)

	return &WorkerBundle{
		Manager:     manager,
		Fulfillment: fulfillment,
	}, nil
}

// RegistryDeps groups what review sessions are built from
type RegistryDeps struct {
	Backend   port.TaskBackend
	Notifier  port.Notifier
	Fulfiller port.FulfillmentQueue
	ReviewCfg *ReviewConfig
	Now       func() time.Time
	Logger    *zap.Logger
}

// ProvideRegistry creates the session registry with a factory that wires
// every new session to the shared backend, notifier and fulfillment queue.
func ProvideRegistry(deps *RegistryDeps) (*review.Registry, error) {
	if deps == nil {
		return nil, fmt.Errorf("registry dependencies are required")
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if deps.ReviewCfg == nil {
		return nil, fmt.Errorf("review config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sessionLogger := utils.NewKVLogger(deps.Logger)
	factory := func(id string) *review.Session {
		return review.NewSession(deps.Backend, sessionLogger, review.Options{
			ID:                  id,
			Notifier:            deps.Notifier,
			Fulfiller:           deps.Fulfiller,
			Clock:               deps.Now,
			DefaultViewFilter:   deps.ReviewCfg.DefaultViewFilter,
			DefaultUpdateFilter: deps.ReviewCfg.DefaultUpdateFilter,
		})
	}
	return review.NewRegistry(factory), nil
}

// Clock returns a clock in loc. A nil loc means local time.
func Clock(loc *time.Location) func() time.Time {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time {
		return time.Now().In(loc)
	}
}
