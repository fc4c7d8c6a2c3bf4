package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker is a background loop owned by the container
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// ErrAlreadyRunning is returned by StartAll on a running manager
var ErrAlreadyRunning = errors.New("workers already running")

// WorkerManager runs the registered workers as one unit. Workers start in
// registration order and stop in reverse, so a worker may depend on any
// worker registered before it.
type WorkerManager struct {
	logger *zap.Logger

	mu      sync.RWMutex
	workers []Worker
	started []Worker
	cancel  context.CancelFunc
}

// NewWorkerManager creates an empty manager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{logger: logger}
}

// Register adds a worker. Workers registered after StartAll are not started.
func (m *WorkerManager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.logger.Debug("Worker registered", zap.String("worker", w.Name()))
}

// StartAll starts every worker under a context derived from ctx. If one
// fails, the workers already started are stopped again and the error is
// returned.
func (m *WorkerManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	started := make([]Worker, 0, len(m.workers))
	for _, w := range m.workers {
		if err := w.Start(runCtx); err != nil {
			cancel()
			if stopErr := stopReverse(started, m.logger); stopErr != nil {
				err = errors.Join(err, stopErr)
			}
			return fmt.Errorf("start worker %s: %w", w.Name(), err)
		}
		started = append(started, w)
		m.logger.Info("Worker started", zap.String("worker", w.Name()))
	}

	m.started = started
	m.cancel = cancel
	return nil
}

// StopAll cancels the workers' context and stops them newest first. It is
// a no-op on a manager that is not running.
func (m *WorkerManager) StopAll() error {
	m.mu.Lock()
	started, cancel := m.started, m.cancel
	m.started, m.cancel = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return stopReverse(started, m.logger)
}

func stopReverse(workers []Worker, logger *zap.Logger) error {
	var errs []error
	for i := len(workers) - 1; i >= 0; i-- {
		w := workers[i]
		if err := w.Stop(); err != nil {
			logger.Error("Failed to stop worker", zap.String("worker", w.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", w.Name(), err))
			continue
		}
		logger.Info("Worker stopped", zap.String("worker", w.Name()))
	}
	return errors.Join(errs...)
}

// GetWorkerCount returns the number of registered workers
func (m *WorkerManager) GetWorkerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// Names lists registered workers in registration order
func (m *WorkerManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.workers))
	for i, w := range m.workers {
		names[i] = w.Name()
	}
	return names
}

// IsRunning reports whether StartAll succeeded and StopAll has not run
func (m *WorkerManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cancel != nil
}
