package room

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/pkg/metrics"
)

// Registry is the process-wide mapping from room code to Room. It is
// constructed at startup and passed around by handle; no other component
// keeps a Room beyond the scope of one operation.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate - returns the room for the code, creating it on first
// reference. A code is never mapped to two Room instances concurrently.
func (that *Registry) GetOrCreate(code string) *Room {
	that.mu.Lock()
	defer that.mu.Unlock()

	existing, ok := that.rooms[code]
	if ok {
		return existing
	}

	created := New(code)
	that.rooms[code] = created
	metrics.ActiveRooms.Inc()

	return created
}

// Get - returns the room for the code if it exists.
func (that *Registry) Get(code string) (*Room, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	existing, ok := that.rooms[code]

	return existing, ok
}

// ReleaseIfEmpty - removes the entry iff the room holds no players and no
// spectators at call time. Intended to run right after any departure.
func (that *Registry) ReleaseIfEmpty(code string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	existing, ok := that.rooms[code]
	if !ok || !existing.Empty() {
		return
	}

	delete(that.rooms, code)
	metrics.ActiveRooms.Dec()
}

// Len - the number of live rooms.
func (that *Registry) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}
