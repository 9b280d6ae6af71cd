package registry

import (
	"sync"

	"github.com/cwrk-planet/signal-relay/internal/domain"
)

// Registry owns every active room. All mutations run under one exclusive
// lock, reads under the shared lock, so no caller ever sees a half-applied
// change.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room // roomID -> room
	gen   Generator
}

func New(gen Generator) *Registry {
	if gen == nil {
		gen = Digits(4)
	}
	return &Registry{
		rooms: make(map[string]*domain.Room),
		gen:   gen,
	}
}

// CreateRoom inserts a new empty room and returns its id. A colliding
// candidate is discarded and a fresh one drawn until an unused id is found.
func (r *Registry) CreateRoom() string {
	for {
		id := r.gen()
		if r.insertIfAbsent(id) {
			return id
		}
	}
}

func (r *Registry) insertIfAbsent(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[id]; ok {
		return false
	}
	r.rooms[id] = domain.NewRoom(id)
	return true
}

func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[id]
	return ok
}

// MemberCount returns *domain.NotFoundError for an unknown room.
func (r *Registry) MemberCount(id string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return 0, &domain.NotFoundError{RoomID: id}
	}
	return len(room.Members), nil
}

// Join adds participantID to the room if it exists and is not full.
func (r *Registry) Join(id, participantID string) bool {
	_, ok := r.JoinCount(id, participantID)
	return ok
}

// JoinCount is Join that also returns the member count right after the
// append, read inside the same critical section.
func (r *Registry) JoinCount(id, participantID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok || room.Full() {
		return 0, false
	}
	room.Members = append(room.Members, participantID)
	return len(room.Members), true
}

// Leave removes participantID from the room and deletes the room once it is
// empty. It returns false only when no room matched id.
func (r *Registry) Leave(id, participantID string) bool {
	if id == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return false
	}
	room.Remove(participantID)
	if room.Empty() {
		delete(r.rooms, id)
	}
	return true
}

// Snapshot returns a deep copy of the room table.
func (r *Registry) Snapshot() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.rooms))
	for id, room := range r.rooms {
		members := make([]string, len(room.Members))
		copy(members, room.Members)
		out[id] = members
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
