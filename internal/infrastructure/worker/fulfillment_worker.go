package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/domain/event"
)

// FulfillmentBackend marks predecessor records as followed up
type FulfillmentBackend interface {
	MarkFulfilled(ctx context.Context, recordID string) error
}

// FulfillmentWorkerConfig holds configuration for the fulfillment worker
type FulfillmentWorkerConfig struct {
	QueueSize      int
	MaxAttempts    int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// DefaultFulfillmentWorkerConfig returns default configuration
func DefaultFulfillmentWorkerConfig() FulfillmentWorkerConfig {
	return FulfillmentWorkerConfig{
		QueueSize:      256,
		MaxAttempts:    3,
		RetryDelay:     2 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// FulfillmentWorker drains best-effort markFulfilled requests in the
// background. Enqueue never blocks; a full queue drops the request.
type FulfillmentWorker struct {
	config   FulfillmentWorkerConfig
	backend  FulfillmentBackend
	notifier port.Notifier
	logger   *zap.Logger

	queue chan string

	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	isRunning      bool
	processedCount int
	failedCount    int
	droppedCount   int
}

// NewFulfillmentWorker creates a fulfillment worker. notifier may be nil.
func NewFulfillmentWorker(
	config FulfillmentWorkerConfig,
	backend FulfillmentBackend,
	notifier port.Notifier,
	logger *zap.Logger,
) *FulfillmentWorker {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultFulfillmentWorkerConfig().QueueSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &FulfillmentWorker{
		config:   config,
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		queue:    make(chan string, config.QueueSize),
	}
}

// Enqueue schedules recordID to be marked fulfilled
func (w *FulfillmentWorker) Enqueue(recordID string) bool {
	select {
	case w.queue <- recordID:
		return true
	default:
		w.mu.Lock()
		w.droppedCount++
		w.mu.Unlock()
		w.logger.Warn("Fulfillment queue full, request dropped",
			zap.String("record_id", recordID),
			zap.Int("queue_size", w.config.QueueSize))
		return false
	}
}

// Start begins draining the queue
func (w *FulfillmentWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("fulfillment worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("FulfillmentWorker started",
		zap.Int("queue_size", w.config.QueueSize),
		zap.Int("max_attempts", w.config.MaxAttempts))

	w.wg.Add(1)
	go w.drainLoop()

	return nil
}

// Stop terminates the worker after the in-flight request finishes.
// Requests still queued are discarded.
func (w *FulfillmentWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	processed, failed, dropped := w.Stats()
	w.logger.Info("FulfillmentWorker stopped",
		zap.Int("processed_count", processed),
		zap.Int("failed_count", failed),
		zap.Int("dropped_count", dropped),
		zap.Int("pending", len(w.queue)))

	return nil
}

// Name returns the worker name for identification
func (w *FulfillmentWorker) Name() string {
	return "FulfillmentWorker"
}

// Stats returns processed, failed and dropped request counts
func (w *FulfillmentWorker) Stats() (processed, failed, dropped int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.processedCount, w.failedCount, w.droppedCount
}

func (w *FulfillmentWorker) drainLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case recordID := <-w.queue:
			w.process(recordID)
		}
	}
}

func (w *FulfillmentWorker) process(recordID string) {
	var err error
	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(w.ctx, w.config.RequestTimeout)
		err = w.backend.MarkFulfilled(ctx, recordID)
		cancel()
		if err == nil {
			w.mu.Lock()
			w.processedCount++
			w.mu.Unlock()
			w.logger.Debug("Task marked fulfilled",
				zap.String("record_id", recordID),
				zap.Int("attempt", attempt))
			return
		}

		w.logger.Warn("Mark fulfilled attempt failed",
			zap.String("record_id", recordID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == w.config.MaxAttempts {
			break
		}
		select {
		case <-w.ctx.Done():
			return
		case <-time.After(w.config.RetryDelay):
		}
	}

	w.mu.Lock()
	w.failedCount++
	w.mu.Unlock()
	w.logger.Error("Failed to mark task fulfilled",
		zap.String("record_id", recordID),
		zap.Error(err))

	if w.notifier != nil {
		e := event.NewEvent(event.TypeFulfillmentFailed, "", "Previous task could not be marked as fulfilled.").
			WithPayload("record_id", recordID)
		w.notifier.Notify(w.ctx, e)
	}
}
