package ws

import "encoding/json"

// Inbound frame types.
const (
	TypeSubscribe = "subscribe"
	TypeSend      = "send"
	TypeLeave     = "leave"
)

// Frame is an inbound message as read off the socket.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SubscribePayload struct {
	RoomID string `json:"roomId"`
}

type SendPayload struct {
	Kind    string          `json:"kind"`
	Room    string          `json:"room"`
	Message json.RawMessage `json:"message"`
}

type LeavePayload struct {
	Room string `json:"room"`
}

// decode tolerates an absent payload.
func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
