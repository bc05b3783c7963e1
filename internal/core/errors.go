package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeRoomExists      = "room_exists"
	ErrCodeNotInRoom       = "not_in_room"
	ErrCodeUnknownReceiver = "unknown_receiver"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnknownCommand  = "unknown_command"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room already exists")
	ErrNotInRoom      = errors.New("not in room")
	ErrClientNotFound = errors.New("client not found")

	// Delivery errors.
	ErrSlowConsumer = errors.New("client outbound queue is full")
	ErrClientClosed = errors.New("client is closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
