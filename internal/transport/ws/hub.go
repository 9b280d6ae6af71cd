package ws

import (
	"log/slog"
	"sync"

	"github.com/cwrk-planet/signal-relay/internal/session"
)

// Hub is the transport side of rooms: which connections receive a room's
// broadcasts. Membership authority stays with the registry.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[session.Peer]struct{} // roomID -> set of connections
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[session.Peer]struct{})}
}

func (h *Hub) Add(roomID string, p session.Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[session.Peer]struct{})
		h.rooms[roomID] = rs
	}
	rs[p] = struct{}{}
}

func (h *Hub) Remove(roomID string, p session.Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[roomID]; ok {
		delete(rs, p)
		if len(rs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Broadcast is best-effort: a failed send is logged and skipped.
func (h *Hub) Broadcast(roomID string, msg session.Message, skip session.Peer) {
	for _, p := range h.peers(roomID) {
		if p == skip {
			continue
		}
		if err := p.Send(msg); err != nil {
			slog.Warn("ws broadcast send failed", "room", roomID, "peer", p.ID(), "type", msg.Type, "err", err)
		}
	}
}

func (h *Hub) peers(roomID string) []session.Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rs := h.rooms[roomID]
	out := make([]session.Peer, 0, len(rs))
	for p := range rs {
		out = append(out, p)
	}
	return out
}
