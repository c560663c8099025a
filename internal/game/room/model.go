// Package room provides the static room definitions and the registry that
// holds them for the lifetime of the process.
package room

import (
	"fmt"
)

// Room is the static definition of a named, capacity-bounded game room.
// Occupancy is tracked by the session package, never here.
type Room struct {
	// ID is the stable room key clients join by.
	ID string
	// Name is the human-readable room title.
	Name string
	// Description is shown in the server listing.
	Description string
	// MaxPlayers is the admission cap. Always >= 1.
	MaxPlayers int
}

// Validate checks the room definition invariants.
//
// Postcondition: Returns nil if ID and Name are non-empty and MaxPlayers >= 1.
func (r Room) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("room ID must not be empty")
	}
	if r.Name == "" {
		return fmt.Errorf("room %q: name must not be empty", r.ID)
	}
	if r.MaxPlayers < 1 {
		return fmt.Errorf("room %q: max_players must be >= 1, got %d", r.ID, r.MaxPlayers)
	}
	return nil
}
