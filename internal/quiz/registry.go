package quiz

import (
	"context"
	"log"
	"sync"
	"time"
)

// Registry holds the live sessions for this process. Sessions are
// ephemeral: they exist only between start and completion/abandonment,
// and finished ones are reaped after a grace period.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove cancels the session's countdown and drops it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Abandon()
		delete(r.sessions, id)
	}
}

// StartReaper periodically drops terminal sessions older than age.
func (r *Registry) StartReaper(ctx context.Context, interval, age time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("[quiz] session reaper started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[quiz] session reaper shutting down")
			return
		case <-ticker.C:
			r.reap(age)
		}
	}
}

func (r *Registry) reap(age time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.Done(age) {
			delete(r.sessions, id)
		}
	}
}

// Count returns the number of live sessions, for the health endpoint.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
