package domain

// MaxParticipants is the occupancy limit of every room.
const MaxParticipants = 2

// Room is a rendezvous point for at most MaxParticipants connections.
// Members keeps arrival order.
type Room struct {
	ID      string
	Members []string
}

func NewRoom(id string) *Room {
	return &Room{ID: id, Members: make([]string, 0, MaxParticipants)}
}

func (r *Room) Full() bool {
	return len(r.Members) >= MaxParticipants
}

// Remove drops every occurrence of participantID and reports how many
// entries were removed.
func (r *Room) Remove(participantID string) int {
	kept := r.Members[:0]
	for _, m := range r.Members {
		if m != participantID {
			kept = append(kept, m)
		}
	}
	removed := len(r.Members) - len(kept)
	r.Members = kept
	return removed
}

func (r *Room) Empty() bool {
	return len(r.Members) == 0
}
