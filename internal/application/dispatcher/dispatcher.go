// Package dispatcher fans session notices out to subscribed handlers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/domain/event"
)

// ErrClosed is returned by Dispatch after Close
var ErrClosed = errors.New("dispatcher is closed")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type subscription struct {
	id      uint64
	name    string
	filter  Filter
	handler Handler
}

// Dispatcher delivers notices to every subscription whose filter matches,
// in subscription order. It implements port.Notifier for sessions and
// workers.
type Dispatcher struct {
	logger Logger

	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	closed bool
}

// Option configures the dispatcher
type Option func(*Dispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a notice dispatcher
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers handler for the notices filter matches. The returned
// func removes the subscription.
func (d *Dispatcher) Subscribe(name string, filter Filter, handler Handler) (unsubscribe func()) {
	if filter == nil {
		filter = Everything
	}

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscription{id: id, name: name, filter: filter, handler: handler})
	d.mu.Unlock()

	if d.logger != nil {
		d.logger.Info("Notice handler subscribed", "handler_name", name)
	}

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(id) })
	}
}

func (d *Dispatcher) remove(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.subs {
		if s.id == id {
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			return
		}
	}
}

// Dispatch runs every matching handler. A failing or panicking handler
// does not stop the others; their errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrClosed
	}
	subs := make([]subscription, 0, len(d.subs))
	for _, s := range d.subs {
		if s.filter(evt) {
			subs = append(subs, s)
		}
	}
	d.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := run(ctx, evt, s.handler); err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, evt *event.Event, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, evt)
}

// Notify delivers evt and logs delivery failures instead of returning
// them; a notice never fails the operation that raised it.
func (d *Dispatcher) Notify(ctx context.Context, evt *event.Event) {
	if err := d.Dispatch(ctx, evt); err != nil && d.logger != nil {
		d.logger.Error("Notice delivery failed",
			"event_type", evt.Type,
			"event_id", evt.ID,
			"session_id", evt.SessionID,
			"error", err,
		)
	}
}

// Handlers lists subscription names in subscription order
func (d *Dispatcher) Handlers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, len(d.subs))
	for i, s := range d.subs {
		names[i] = s.name
	}
	return names
}

// Close stops delivery. Closing twice is an error.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("dispatcher already closed")
	}
	d.closed = true
	if d.logger != nil {
		d.logger.Info("Dispatcher closed", "handlers", len(d.subs))
	}
	return nil
}

var _ port.Notifier = (*Dispatcher)(nil)
