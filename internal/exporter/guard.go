package exporter

import (
	"sync"

	"github.com/boarddeck/boarddeck/internal/apperr"
)

// Guard allows at most one export in flight per session.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// Do runs fn unless an export for id is already running, in which case it fails fast with a conflict.
func (g *Guard) Do(id string, fn func() error) error {
	g.mu.Lock()
	if _, busy := g.active[id]; busy {
		g.mu.Unlock()
		return apperr.Conflict("an export is already in progress for session %s", id)
	}
	g.active[id] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.active, id)
		g.mu.Unlock()
	}()

	return fn()
}

// Busy reports whether an export for id is running.
func (g *Guard) Busy(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[id]
	return busy
}
