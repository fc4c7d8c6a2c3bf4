package review

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown session id
var ErrSessionNotFound = errors.New("session not found")

// Factory builds a session with the given id
type Factory func(id string) *Session

// Registry keeps the live review sessions of a server process
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
}

// NewRegistry creates an empty registry
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Create builds and registers a new session
func (r *Registry) Create() *Session {
	s := r.factory(uuid.NewString())

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with id
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes the session with id
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
