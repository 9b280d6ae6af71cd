package domain

import "time"

type EventKind string

const (
	EventCreated  EventKind = "created"
	EventJoined   EventKind = "joined"
	EventRejected EventKind = "rejected"
	EventLeft     EventKind = "left"
)

// RoomEvent is one entry of the room lifecycle audit log.
type RoomEvent struct {
	ID            int64     `db:"id"`
	RoomID        string    `db:"room_id"`
	ParticipantID string    `db:"participant_id"`
	Kind          EventKind `db:"kind"`
	CreatedAt     time.Time `db:"created_at"`
}
