// Package session provides player state tracking, per-room admission, and the
// coordinator that applies join, move, leave, and idle eviction.
package session

import (
	"time"

	"github.com/cory-johannsen/roomsync/internal/protocol"
)

// Name length bounds, in runes.
const (
	MinNameLength = 2
	MaxNameLength = 20
)

// PlayerState is the mutable record of one joined connection.
// It is owned by the roomState that holds it and is only touched under that room's lock.
type PlayerState struct {
	// ID equals the owning connection's identifier.
	ID string
	// Username is unique within the room, case-sensitive.
	Username string
	// RoomID is a back-reference to the room holding this state.
	RoomID   string
	Position protocol.Vector3
	Rotation protocol.Vector3
	// JoinedAt is set once on admission.
	JoinedAt time.Time
	// LastActive is refreshed by moves and pings; idle eviction compares against it.
	LastActive time.Time
}

// View returns the wire representation of the player.
func (p *PlayerState) View() protocol.Player {
	return protocol.Player{
		ID:           p.ID,
		Username:     p.Username,
		Position:     p.Position,
		Rotation:     p.Rotation,
		Room:         p.RoomID,
		JoinedAt:     p.JoinedAt.UnixMilli(),
		LastActiveAt: p.LastActive.UnixMilli(),
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
