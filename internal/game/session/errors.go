package session

import (
	"errors"
)

// Join rejections. Each is reported once to the joining connection.
var (
	ErrRoomNotFound  = errors.New("server not found")
	ErrRoomFull      = errors.New("server is full")
	ErrInvalidName   = errors.New("invalid username")
	ErrNameTaken     = errors.New("username already taken on this server")
	ErrAlreadyJoined = errors.New("already joined a server")
)

var errorCodes = map[error]string{
	ErrRoomNotFound:  "room_not_found",
	ErrRoomFull:      "room_full",
	ErrInvalidName:   "invalid_name",
	ErrNameTaken:     "name_taken",
	ErrAlreadyJoined: "already_joined",
}

// ErrorCode returns the stable wire code for a join rejection, or "internal"
// for anything else.
func ErrorCode(err error) string {
	for sentinel, code := range errorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "internal"
}
