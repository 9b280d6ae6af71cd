package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomItem struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
}

type RoomsListResponse struct {
	Items []RoomItem `json:"items"`
}

type RoomCountResponse struct {
	ID              string `json:"id"`
	Participants    int    `json:"participants"`
	MaxParticipants int    `json:"max_participants"`
}

type EventItem struct {
	ID            int64     `json:"id"`
	RoomID        string    `json:"room_id"`
	ParticipantID string    `json:"participant_id"`
	Kind          string    `json:"kind"`
	CreatedAt     time.Time `json:"created_at"`
}

type EventsListResponse struct {
	Items      []EventItem `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
