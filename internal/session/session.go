package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cwrk-planet/signal-relay/internal/domain"
)

// Outbound event types.
const (
	TypeSubscription = "subscription"
)

// Message is one outbound frame: an event name and its JSON payload.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type SubscriptionPayload struct {
	RoomID       string `json:"roomId"`
	Participants int    `json:"participants"`
}

type RelayPayload struct {
	Message json.RawMessage `json:"message"`
}

// Registry is the slice of the room registry a session drives.
type Registry interface {
	CreateRoom() string
	JoinCount(id, participantID string) (int, bool)
	Leave(id, participantID string) bool
	Snapshot() map[string][]string
}

// Peer is the outbound side of one connection.
type Peer interface {
	ID() string
	Send(msg Message) error
}

// Group maps rooms to the peers that receive their broadcasts.
type Group interface {
	Add(roomID string, p Peer)
	Remove(roomID string, p Peer)
	// Broadcast delivers msg to every peer of roomID except skip (nil: none).
	Broadcast(roomID string, msg Message, skip Peer)
}

// Recorder receives room lifecycle events. Record must not block.
type Recorder interface {
	Record(ev domain.RoomEvent)
}

type nopRecorder struct{}

func (nopRecorder) Record(domain.RoomEvent) {}

// Session is the per-connection state machine. It is driven by a single
// goroutine (the connection's read loop) and is not safe for concurrent use.
type Session struct {
	peer     Peer
	registry Registry
	group    Group
	recorder Recorder
	log      *slog.Logger

	room   *string
	closed bool
}

type Option func(*Session)

func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func New(peer Peer, registry Registry, group Group, opts ...Option) *Session {
	s := &Session{
		peer:     peer,
		registry: registry,
		group:    group,
		recorder: nopRecorder{},
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("participant", peer.ID())
	return s
}

// Room returns the current room, if any.
func (s *Session) Room() (string, bool) {
	if s.room == nil {
		return "", false
	}
	return *s.room, true
}

// Subscribe joins roomID, or a freshly created room when roomID is empty.
// It reports whether the session is now in a room. A session that is
// already joined cannot subscribe again until it leaves.
func (s *Session) Subscribe(roomID string) bool {
	if s.closed {
		return false
	}
	if cur, ok := s.Room(); ok {
		s.log.Debug("subscribe rejected: already joined", "room", cur, "requested", roomID)
		return false
	}

	created := false
	if roomID == "" {
		roomID = s.registry.CreateRoom()
		created = true
		s.log.Info("room created", "room", roomID)
		s.record(roomID, domain.EventCreated)
	}

	count, ok := s.registry.JoinCount(roomID, s.peer.ID())
	if !ok {
		s.log.Info("join rejected", "room", roomID)
		s.record(roomID, domain.EventRejected)
		if created {
			// a room nobody could join must not linger empty
			s.registry.Leave(roomID, s.peer.ID())
		}
		return false
	}
	s.room = &roomID
	s.record(roomID, domain.EventJoined)

	s.group.Add(roomID, s.peer)
	s.group.Broadcast(roomID, Message{
		Type: TypeSubscription,
		Payload: SubscriptionPayload{
			RoomID:       roomID,
			Participants: count,
		},
	}, nil)

	s.log.Info("joined room", "room", roomID, "participants", count)
	s.logRooms()
	return true
}

// Leave leaves the current room and returns the registry's answer. A room
// id naming another room is logged and the current room is left anyway, so
// no membership is left dangling.
func (s *Session) Leave(roomID string) bool {
	cur, joined := s.Room()
	if s.closed || !joined {
		return false
	}
	if roomID != "" && roomID != cur {
		s.log.Debug("leave names another room", "room", roomID, "current", cur)
	}

	ok := s.leave(cur)
	s.room = nil
	s.log.Info("left room", "room", cur, "matched", ok)
	s.logRooms()
	return ok
}

// Disconnect releases the current room. The session accepts no further
// events afterwards.
func (s *Session) Disconnect() {
	if s.closed {
		return
	}
	s.closed = true

	if cur, ok := s.Room(); ok {
		s.leave(cur)
		s.room = nil
	}
	s.log.Info("disconnected")
	s.logRooms()
}

// Relay forwards data as event kind to the other members of the current
// room. Frames naming a room other than the current one are dropped.
func (s *Session) Relay(kind, roomID string, data json.RawMessage) bool {
	cur, ok := s.Room()
	if s.closed || !ok {
		s.log.Debug("relay dropped: not joined", "kind", kind)
		return false
	}
	if roomID != "" && roomID != cur {
		s.log.Debug("relay dropped: room mismatch", "kind", kind, "room", roomID, "current", cur)
		return false
	}

	s.group.Broadcast(cur, Message{
		Type:    kind,
		Payload: RelayPayload{Message: data},
	}, s.peer)
	return true
}

// leave drops the peer from the broadcast group before releasing the
// registry slot: once the registry deletes an emptied room its id can be
// handed out again, and the departed peer must not be reachable under it.
func (s *Session) leave(roomID string) bool {
	s.group.Remove(roomID, s.peer)
	ok := s.registry.Leave(roomID, s.peer.ID())
	if ok {
		s.record(roomID, domain.EventLeft)
	}
	return ok
}

func (s *Session) record(roomID string, kind domain.EventKind) {
	s.recorder.Record(domain.RoomEvent{
		RoomID:        roomID,
		ParticipantID: s.peer.ID(),
		Kind:          kind,
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *Session) logRooms() {
	if !s.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	s.log.Debug("rooms", "snapshot", s.registry.Snapshot())
}
