package domain

import (
	"errors"
	"fmt"
)

var ErrRoomNotFound = errors.New("room not found")

// NotFoundError is returned when a caller queries a room that does not exist.
// It matches ErrRoomNotFound with errors.Is.
type NotFoundError struct {
	RoomID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("room %q not found", e.RoomID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrRoomNotFound
}
