// Package protocol defines the event envelope and payloads exchanged between
// game clients and the room server over the websocket transport.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event is the name carried in an envelope.
type Event string

// Inbound events, client to server.
const (
	EventJoin           Event = "join"
	EventPlayerMovement Event = "playerMovement"
	EventPing           Event = "ping"
)

// Outbound events, server to client.
const (
	EventWelcome            Event = "welcome"
	EventCurrentPlayers     Event = "currentPlayers"
	EventNewPlayer          Event = "newPlayer"
	EventPlayerCount        Event = "playerCount"
	EventPlayerMoved        Event = "playerMoved"
	EventPlayerDisconnected Event = "playerDisconnected"
	EventError              Event = "error"
	EventPong               Event = "pong"
)

// Envelope is a single websocket text frame.
type Envelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Vector3 is a position or rotation triple.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Player is the public view of a joined player.
type Player struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Position     Vector3 `json:"position"`
	Rotation     Vector3 `json:"rotation"`
	Room         string  `json:"room"`
	JoinedAt     int64   `json:"joinedAt"`
	LastActiveAt int64   `json:"lastActiveAt"`
}

// JoinRequest is the payload of a join event.
type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// MoveRequest is the payload of a playerMovement event. Pointer fields are nil
// when the client omitted them.
type MoveRequest struct {
	Room     string   `json:"room"`
	Position *Vector3 `json:"position"`
	Rotation *Vector3 `json:"rotation"`
}

// Welcome greets a freshly upgraded connection.
type Welcome struct {
	Message   string `json:"message"`
	SocketID  string `json:"socketId"`
	Timestamp int64  `json:"timestamp"`
}

// Roster maps connection IDs to players; sent to a joiner only.
type Roster map[string]Player

// PlayerCount carries a room's current size.
type PlayerCount struct {
	Count int `json:"count"`
}

// PlayerMoved is relayed to the mover's room, excluding the mover.
type PlayerMoved struct {
	ID       string  `json:"id"`
	Position Vector3 `json:"position"`
	Rotation Vector3 `json:"rotation"`
}

// PlayerDisconnected names the connection that left a room.
type PlayerDisconnected struct {
	ID string `json:"id"`
}

// Error reports a rejected request to its sender.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Pong answers ping.
type Pong struct {
	Timestamp int64 `json:"timestamp"`
}

// ErrEmptyEvent is returned by Decode when the envelope has no event name.
var ErrEmptyEvent = errors.New("protocol: envelope has no event")

// Encode serializes payload into an envelope frame. A nil payload omits data.
//
// Precondition: event must be non-empty.
// Postcondition: Returns the JSON frame or a marshalling error.
func Encode(event Event, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", event, err)
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", event, err)
	}
	return frame, nil
}

// Decode parses a frame into an Envelope.
//
// Postcondition: Returns an Envelope with a non-empty Event, or an error.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrEmptyEvent
	}
	return env, nil
}

// DecodeData unmarshals the envelope payload into v. Missing data leaves v untouched.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Event, err)
	}
	return nil
}
