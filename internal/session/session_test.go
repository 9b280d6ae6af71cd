package session_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/cwrk-planet/signal-relay/internal/domain"
	"github.com/cwrk-planet/signal-relay/internal/registry"
	"github.com/cwrk-planet/signal-relay/internal/session"

	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	id string

	mu   sync.Mutex
	sent []session.Message
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(msg session.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakePeer) messages() []session.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]session.Message(nil), p.sent...)
}

// fakeGroup delivers synchronously, like the hub does.
type fakeGroup struct {
	mu    sync.Mutex
	rooms map[string]map[session.Peer]struct{}
}

func newFakeGroup() *fakeGroup {
	return &fakeGroup{rooms: make(map[string]map[session.Peer]struct{})}
}

func (g *fakeGroup) Add(roomID string, p session.Peer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rooms[roomID] == nil {
		g.rooms[roomID] = make(map[session.Peer]struct{})
	}
	g.rooms[roomID][p] = struct{}{}
}

func (g *fakeGroup) Remove(roomID string, p session.Peer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms[roomID], p)
	if len(g.rooms[roomID]) == 0 {
		delete(g.rooms, roomID)
	}
}

func (g *fakeGroup) Broadcast(roomID string, msg session.Message, skip session.Peer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for p := range g.rooms[roomID] {
		if p != skip {
			_ = p.Send(msg)
		}
	}
}

type fakeRecorder struct {
	events []domain.RoomEvent
}

func (r *fakeRecorder) Record(ev domain.RoomEvent) { r.events = append(r.events, ev) }

func (r *fakeRecorder) kinds() []domain.EventKind {
	out := make([]domain.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func fixedID(id string) registry.Generator {
	return func() string { return id }
}

func TestSession_SubscribeEmptyCreatesRoom(t *testing.T) {
	req := require.New(t)
	reg := registry.New(fixedID("7421"))
	group := newFakeGroup()
	rec := &fakeRecorder{}
	a := &fakePeer{id: "A"}

	s := session.New(a, reg, group, session.WithRecorder(rec))
	req.True(s.Subscribe(""))

	room, ok := s.Room()
	req.True(ok)
	req.Equal("7421", room)
	req.Equal([]string{"A"}, reg.Snapshot()["7421"])

	msgs := a.messages()
	req.Len(msgs, 1)
	req.Equal(session.TypeSubscription, msgs[0].Type)
	req.Equal(session.SubscriptionPayload{RoomID: "7421", Participants: 1}, msgs[0].Payload)
	req.Equal([]domain.EventKind{domain.EventCreated, domain.EventJoined}, rec.kinds())
}

func TestSession_SubscribeExistingNotifiesWholeRoom(t *testing.T) {
	req := require.New(t)
	reg := registry.New(fixedID("7421"))
	group := newFakeGroup()
	a, b := &fakePeer{id: "A"}, &fakePeer{id: "B"}

	sa := session.New(a, reg, group)
	sb := session.New(b, reg, group)
	req.True(sa.Subscribe(""))
	req.True(sb.Subscribe("7421"))

	want := session.SubscriptionPayload{RoomID: "7421", Participants: 2}
	req.Len(a.messages(), 2)
	req.Equal(want, a.messages()[1].Payload)
	req.Len(b.messages(), 1)
	req.Equal(want, b.messages()[0].Payload)
}

func TestSession_SubscribeFullRoomIsSilent(t *testing.T) {
	req := require.New(t)
	reg := registry.New(fixedID("7421"))
	group := newFakeGroup()
	rec := &fakeRecorder{}
	a, b, c := &fakePeer{id: "A"}, &fakePeer{id: "B"}, &fakePeer{id: "C"}

	req.True(session.New(a, reg, group).Subscribe(""))
	req.True(session.New(b, reg, group).Subscribe("7421"))

	sc := session.New(c, reg, group, session.WithRecorder(rec))
	req.False(sc.Subscribe("7421"))

	_, ok := sc.Room()
	req.False(ok)
	req.Empty(c.messages())
	req.Len(a.messages(), 2)
	req.Equal([]string{"A", "B"}, reg.Snapshot()["7421"])
	req.Equal([]domain.EventKind{domain.EventRejected}, rec.kinds())
}

func TestSession_SubscribeUnknownRoom(t *testing.T) {
	reg := registry.New(nil)
	a := &fakePeer{id: "A"}
	s := session.New(a, reg, newFakeGroup())

	require.False(t, s.Subscribe("nope"))
	require.Empty(t, a.messages())
	require.Zero(t, reg.Len())
}

func TestSession_SubscribeWhileJoinedIsRejected(t *testing.T) {
	req := require.New(t)
	ids := []string{"r1", "r2"}
	var i int
	reg := registry.New(func() string { id := ids[i]; i++; return id })
	group := newFakeGroup()
	a := &fakePeer{id: "A"}

	s := session.New(a, reg, group)
	req.True(s.Subscribe(""))
	req.False(s.Subscribe(""))
	req.False(s.Subscribe("r1"))

	room, _ := s.Room()
	req.Equal("r1", room)
	req.Equal(map[string][]string{"r1": {"A"}}, reg.Snapshot())
	req.Len(a.messages(), 1)
}

func TestSession_LeaveClearsRoomAndDeletesEmpty(t *testing.T) {
	req := require.New(t)
	reg := registry.New(fixedID("7421"))
	group := newFakeGroup()
	a := &fakePeer{id: "A"}

	s := session.New(a, reg, group)
	req.True(s.Subscribe(""))
	req.True(s.Leave("7421"))

	_, ok := s.Room()
	req.False(ok)
	req.False(reg.Exists("7421"))
	req.False(s.Leave("7421"))
}

func TestSession_LeaveWithOtherRoomLeavesCurrent(t *testing.T) {
	reg := registry.New(fixedID("7421"))
	a := &fakePeer{id: "A"}
	s := session.New(a, reg, newFakeGroup())
	require.True(t, s.Subscribe(""))

	require.True(t, s.Leave("elsewhere"))
	require.False(t, reg.Exists("7421"))
}

func TestSession_LeaveKeepsPeerRoom(t *testing.T) {
	req := require.New(t)
	reg := registry.New(fixedID("7421"))
	group := newFakeGroup()
	a, b := &fakePeer{id: "A"}, &fakePeer{id: "B"}
	sa := session.New(a, reg, group)
	sb := session.New(b, reg, group)
	req.True(sa.Subscribe(""))
	req.True(sb.Subscribe("7421"))

	req.True(sa.Leave(""))
	req.Equal([]string{"B"}, reg.Snapshot()["7421"])

	// A no longer receives relays for the room it left.
	req.True(sb.Relay("camera", "7421", json.RawMessage(`"frame"`)))
	req.Len(a.messages(), 2)
}

func TestSession_DisconnectReleasesRoom(t *testing.T) {
	req := require.New(t)
	reg := registry.New(fixedID("7421"))
	group := newFakeGroup()
	a := &fakePeer{id: "A"}

	s := session.New(a, reg, group)
	req.True(s.Subscribe(""))
	s.Disconnect()

	req.False(reg.Exists("7421"))
	req.False(s.Subscribe(""))
	req.Zero(reg.Len())
	s.Disconnect()
}

func TestSession_DisconnectUnjoinedIsNoop(t *testing.T) {
	reg := registry.New(nil)
	rec := &fakeRecorder{}
	s := session.New(&fakePeer{id: "A"}, reg, newFakeGroup(), session.WithRecorder(rec))

	s.Disconnect()
	require.Zero(t, reg.Len())
	require.Empty(t, rec.events)
}

func TestSession_RelayExcludesSender(t *testing.T) {
	req := require.New(t)
	reg := registry.New(fixedID("7421"))
	group := newFakeGroup()
	a, b := &fakePeer{id: "A"}, &fakePeer{id: "B"}
	sa := session.New(a, reg, group)
	sb := session.New(b, reg, group)
	req.True(sa.Subscribe(""))
	req.True(sb.Subscribe("7421"))

	data := json.RawMessage(`{"frame":"base64..."}`)
	req.True(sa.Relay("camera", "7421", data))

	req.Len(a.messages(), 2)
	got := b.messages()
	req.Len(got, 2)
	req.Equal("camera", got[1].Type)
	req.Equal(session.RelayPayload{Message: data}, got[1].Payload)
}

func TestSession_RelayDropped(t *testing.T) {
	req := require.New(t)
	reg := registry.New(fixedID("7421"))
	group := newFakeGroup()
	a, b := &fakePeer{id: "A"}, &fakePeer{id: "B"}
	sa := session.New(a, reg, group)
	sb := session.New(b, reg, group)

	req.False(sa.Relay("camera", "", json.RawMessage(`1`)))

	req.True(sa.Subscribe(""))
	req.True(sb.Subscribe("7421"))
	req.False(sa.Relay("camera", "other", json.RawMessage(`1`)))
	req.Len(b.messages(), 1)
}

// refusingRegistry creates rooms but rejects every join.
type refusingRegistry struct {
	*registry.Registry
}

func (refusingRegistry) JoinCount(string, string) (int, bool) { return 0, false }

func TestSession_CreatedRoomReclaimedWhenJoinFails(t *testing.T) {
	reg := registry.New(fixedID("7421"))
	a := &fakePeer{id: "A"}
	s := session.New(a, refusingRegistry{reg}, newFakeGroup())

	require.False(t, s.Subscribe(""))
	require.False(t, reg.Exists("7421"))
	require.Empty(t, a.messages())
}

// reusingRegistry lets another session create a room right after a Leave
// returns, which is when an emptied room's id becomes available again.
type reusingRegistry struct {
	*registry.Registry
	afterLeave func()
}

func (r *reusingRegistry) Leave(id, participantID string) bool {
	ok := r.Registry.Leave(id, participantID)
	if f := r.afterLeave; f != nil {
		r.afterLeave = nil
		f()
	}
	return ok
}

func TestSession_ReusedRoomIDNotDeliveredToLeaver(t *testing.T) {
	req := require.New(t)
	reg := &reusingRegistry{Registry: registry.New(fixedID("1234"))}
	group := newFakeGroup()
	a, c := &fakePeer{id: "A"}, &fakePeer{id: "C"}

	sa := session.New(a, reg, group)
	sc := session.New(c, reg, group)
	req.True(sa.Subscribe(""))
	req.Len(a.messages(), 1)

	reg.afterLeave = func() { req.True(sc.Subscribe("")) }
	req.True(sa.Leave(""))

	room, ok := sc.Room()
	req.True(ok)
	req.Equal("1234", room)
	req.Equal([]string{"C"}, reg.Snapshot()["1234"])

	req.True(sc.Relay("camera", "1234", json.RawMessage(`"frame"`)))
	req.Len(a.messages(), 1)
}

func TestSession_DisconnectRemovesPeerBeforeRoomReused(t *testing.T) {
	reg := &reusingRegistry{Registry: registry.New(fixedID("1234"))}
	group := newFakeGroup()
	a, c := &fakePeer{id: "A"}, &fakePeer{id: "C"}

	sa := session.New(a, reg, group)
	sc := session.New(c, reg, group)
	require.True(t, sa.Subscribe(""))

	reg.afterLeave = func() { require.True(t, sc.Subscribe("")) }
	sa.Disconnect()

	require.Len(t, a.messages(), 1)
	require.Len(t, c.messages(), 1)
}
