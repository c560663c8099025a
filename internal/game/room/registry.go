package room

import (
	"fmt"
)

// Registry is the fixed set of rooms, keyed by ID and iterated in definition order.
// It is immutable after construction and therefore safe for concurrent use.
type Registry struct {
	rooms map[string]*Room
	order []string
}

// NewRegistry creates a Registry from the given definitions.
//
// Precondition: rooms must contain at least one room.
// Postcondition: Returns a Registry preserving the input order, or an error on an
// invalid definition or a duplicate ID.
func NewRegistry(rooms []Room) (*Registry, error) {
	if len(rooms) == 0 {
		return nil, fmt.Errorf("registry must contain at least one room")
	}
	r := &Registry{
		rooms: make(map[string]*Room, len(rooms)),
		order: make([]string, 0, len(rooms)),
	}
	for _, def := range rooms {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.rooms[def.ID]; exists {
			return nil, fmt.Errorf("duplicate room ID: %q", def.ID)
		}
		r.rooms[def.ID] = &def
		r.order = append(r.order, def.ID)
	}
	return r, nil
}

// DefaultRegistry returns the rooms the service ships with.
//
// Postcondition: Returns a Registry with main-server, server-europe, and server-usa.
func DefaultRegistry() *Registry {
	r, err := NewRegistry([]Room{
		{ID: "main-server", Name: "Main Server", Description: "The main game server", MaxPlayers: 20},
		{ID: "server-europe", Name: "Europe Server", Description: "Low ping for Europe", MaxPlayers: 15},
		{ID: "server-usa", Name: "USA Server", Description: "For players in the USA", MaxPlayers: 15},
	})
	if err != nil {
		panic("room: invalid default registry: " + err.Error())
	}
	return r
}

// Get returns the room with the given ID.
//
// Postcondition: Returns (room, true) if found, or (zero, false) otherwise.
func (r *Registry) Get(id string) (Room, bool) {
	def, ok := r.rooms[id]
	if !ok {
		return Room{}, false
	}
	return *def, true
}

// All returns every room in definition order.
func (r *Registry) All() []Room {
	out := make([]Room, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.rooms[id])
	}
	return out
}

// IDs returns every room ID in definition order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of rooms.
func (r *Registry) Len() int {
	return len(r.order)
}
