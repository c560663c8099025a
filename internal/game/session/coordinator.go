package session

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomsync/internal/game/room"
	"github.com/cory-johannsen/roomsync/internal/game/spawn"
	"github.com/cory-johannsen/roomsync/internal/protocol"
)

// Broadcaster delivers events to connections. Subscribe and Unsubscribe mirror
// room membership onto the delivery layer; the Send methods are best-effort.
type Broadcaster interface {
	Subscribe(connID, roomID string)
	Unsubscribe(connID, roomID string)
	SendTo(connID string, event protocol.Event, payload any)
	SendToRoom(roomID string, event protocol.Event, payload any)
	SendToRoomExcept(roomID, excludeConnID string, event protocol.Event, payload any)
}

// Removal reasons, as logged.
const (
	reasonDisconnect = "disconnect"
	reasonIdle       = "idle"
)

// roomState is the live occupancy of one room.
// mu is held for the whole of every join, move, leave, and reap touching the room.
type roomState struct {
	def     room.Room
	mu      sync.Mutex
	players map[string]*PlayerState // connection ID → state
}

// RoomSummary is one entry of the server listing.
type RoomSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxPlayers  int    `json:"maxPlayers"`
	Players     int    `json:"players"`
}

// PlayerRef identifies a player in diagnostics.
type PlayerRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RoomOccupancy is the per-room diagnostic snapshot.
type RoomOccupancy struct {
	ID          string      `json:"id"`
	PlayerCount int         `json:"playerCount"`
	Players     []PlayerRef `json:"players"`
}

// Coordinator owns all room occupancy and is the only writer of PlayerState.
// All methods are safe for concurrent use. Events for a single connection must be
// delivered sequentially by the transport.
type Coordinator struct {
	rooms   map[string]*roomState
	order   []string
	hub     Broadcaster
	spawner *spawn.Spawner
	clock   Clock
	logger  *zap.Logger
}

// NewCoordinator creates a Coordinator with one empty room per registry entry.
//
// Precondition: registry, hub, spawner, clock, and logger must be non-nil.
// Postcondition: Returns a Coordinator whose rooms iterate in registry order.
func NewCoordinator(registry *room.Registry, hub Broadcaster, spawner *spawn.Spawner, clock Clock, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		rooms:   make(map[string]*roomState, registry.Len()),
		order:   registry.IDs(),
		hub:     hub,
		spawner: spawner,
		clock:   clock,
		logger:  logger,
	}
	for _, def := range registry.All() {
		c.rooms[def.ID] = &roomState{
			def:     def,
			players: make(map[string]*PlayerState),
		}
	}
	return c
}

// Join admits connID into roomID under the given display name.
//
// Checks run in order and the first failure wins: the connection is not already
// a member, the room exists, the room has space, the name is 2-20 runes, and the
// name is unused in the room.
//
// Precondition: connID must be non-empty.
// Postcondition: On success the joiner receives the roster, every other member
// receives newPlayer, then the whole room receives playerCount, and nil is returned.
// On failure the joiner receives one error event, no state changes, and the
// sentinel error is returned.
func (c *Coordinator) Join(connID, name, roomID string) error {
	err := c.join(connID, name, roomID)
	if err != nil {
		c.hub.SendTo(connID, protocol.EventError, protocol.Error{
			Message: err.Error(),
			Code:    ErrorCode(err),
		})
		c.logger.Info("join rejected",
			zap.String("conn_id", connID),
			zap.String("username", name),
			zap.String("room", roomID),
			zap.String("reason", ErrorCode(err)),
		)
	}
	return err
}

func (c *Coordinator) join(connID, name, roomID string) error {
	if current, ok := c.roomOf(connID); ok {
		return fmt.Errorf("%w: %s", ErrAlreadyJoined, current)
	}

	rs, ok := c.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if len(rs.players) >= rs.def.MaxPlayers {
		return ErrRoomFull
	}
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return ErrInvalidName
	}
	for _, p := range rs.players {
		if p.Username == name {
			return ErrNameTaken
		}
	}

	now := c.clock.Now()
	spawnAt := c.spawner.Position()
	player := &PlayerState{
		ID:         connID,
		Username:   name,
		RoomID:     roomID,
		Position:   protocol.Vector3{X: spawnAt.X, Y: spawnAt.Y, Z: spawnAt.Z},
		JoinedAt:   now,
		LastActive: now,
	}
	rs.players[connID] = player
	c.hub.Subscribe(connID, roomID)

	c.hub.SendTo(connID, protocol.EventCurrentPlayers, rs.roster())
	c.hub.SendToRoomExcept(roomID, connID, protocol.EventNewPlayer, player.View())
	c.hub.SendToRoom(roomID, protocol.EventPlayerCount, protocol.PlayerCount{Count: len(rs.players)})

	c.logger.Info("player joined",
		zap.String("conn_id", connID),
		zap.String("username", name),
		zap.String("room", roomID),
		zap.Int("count", len(rs.players)),
	)
	return nil
}

// Move updates the transform of connID and relays it to the rest of its room.
// A non-member or a nil position is silently ignored. A nil rotation keeps the
// previous rotation.
//
// Postcondition: The mover never receives its own playerMoved.
func (c *Coordinator) Move(connID string, position, rotation *protocol.Vector3) {
	if position == nil {
		return
	}
	c.withMember(connID, func(rs *roomState, p *PlayerState) {
		p.Position = *position
		if rotation != nil {
			p.Rotation = *rotation
		}
		p.LastActive = c.clock.Now()
		c.hub.SendToRoomExcept(rs.def.ID, connID, protocol.EventPlayerMoved, protocol.PlayerMoved{
			ID:       connID,
			Position: p.Position,
			Rotation: p.Rotation,
		})
	})
}

// Touch refreshes the last-activity timestamp of connID, if joined.
func (c *Coordinator) Touch(connID string) {
	c.withMember(connID, func(_ *roomState, p *PlayerState) {
		p.LastActive = c.clock.Now()
	})
}

// Leave removes connID from every room that holds it.
//
// Postcondition: Remaining members of each affected room receive playerDisconnected
// then playerCount. Calling Leave for an unknown connection is a no-op.
func (c *Coordinator) Leave(connID string) {
	for _, id := range c.order {
		rs := c.rooms[id]
		rs.mu.Lock()
		c.removeLocked(rs, connID, reasonDisconnect)
		rs.mu.Unlock()
	}
}

// ReapIdle evicts every player whose last activity is more than threshold before now,
// through the same removal path as Leave.
//
// Postcondition: Returns the number of players evicted.
func (c *Coordinator) ReapIdle(now time.Time, threshold time.Duration) int {
	evicted := 0
	for _, id := range c.order {
		rs := c.rooms[id]
		rs.mu.Lock()
		var stale []string
		for connID, p := range rs.players {
			if now.Sub(p.LastActive) > threshold {
				stale = append(stale, connID)
			}
		}
		for _, connID := range stale {
			if c.removeLocked(rs, connID, reasonIdle) {
				evicted++
			}
		}
		rs.mu.Unlock()
	}
	return evicted
}

// ListRooms returns one summary per room in registry order. It has no side effects.
func (c *Coordinator) ListRooms() []RoomSummary {
	out := make([]RoomSummary, 0, len(c.order))
	for _, id := range c.order {
		rs := c.rooms[id]
		rs.mu.Lock()
		n := len(rs.players)
		rs.mu.Unlock()
		out = append(out, RoomSummary{
			ID:          rs.def.ID,
			Name:        rs.def.Name,
			Description: rs.def.Description,
			MaxPlayers:  rs.def.MaxPlayers,
			Players:     n,
		})
	}
	return out
}

// Occupancy returns the players of every room in registry order.
func (c *Coordinator) Occupancy() []RoomOccupancy {
	out := make([]RoomOccupancy, 0, len(c.order))
	for _, id := range c.order {
		rs := c.rooms[id]
		rs.mu.Lock()
		refs := make([]PlayerRef, 0, len(rs.players))
		for _, p := range rs.players {
			refs = append(refs, PlayerRef{ID: p.ID, Username: p.Username})
		}
		rs.mu.Unlock()
		out = append(out, RoomOccupancy{ID: id, PlayerCount: len(refs), Players: refs})
	}
	return out
}

// Player returns a copy of the state of connID.
//
// Postcondition: Returns (state, true) if joined, or (zero, false) otherwise.
func (c *Coordinator) Player(connID string) (PlayerState, bool) {
	var out PlayerState
	found := false
	c.withMember(connID, func(_ *roomState, p *PlayerState) {
		out = *p
		found = true
	})
	return out, found
}

// PlayerCount returns the total number of joined players across all rooms.
func (c *Coordinator) PlayerCount() int {
	total := 0
	for _, id := range c.order {
		rs := c.rooms[id]
		rs.mu.Lock()
		total += len(rs.players)
		rs.mu.Unlock()
	}
	return total
}

// removeLocked is the single removal primitive shared by Leave and ReapIdle.
//
// Precondition: rs.mu must be held.
// Postcondition: Returns true exactly once per admitted player.
func (c *Coordinator) removeLocked(rs *roomState, connID, reason string) bool {
	p, ok := rs.players[connID]
	if !ok {
		return false
	}
	delete(rs.players, connID)
	c.hub.Unsubscribe(connID, rs.def.ID)

	c.hub.SendToRoom(rs.def.ID, protocol.EventPlayerDisconnected, protocol.PlayerDisconnected{ID: connID})
	c.hub.SendToRoom(rs.def.ID, protocol.EventPlayerCount, protocol.PlayerCount{Count: len(rs.players)})

	c.logger.Info("player removed",
		zap.String("conn_id", connID),
		zap.String("username", p.Username),
		zap.String("room", rs.def.ID),
		zap.String("reason", reason),
		zap.Int("count", len(rs.players)),
		zap.Duration("session", c.clock.Now().Sub(p.JoinedAt)),
	)
	return true
}

// withMember runs fn under the lock of the room holding connID. fn is not called
// when connID is not joined.
func (c *Coordinator) withMember(connID string, fn func(rs *roomState, p *PlayerState)) {
	for _, id := range c.order {
		rs := c.rooms[id]
		rs.mu.Lock()
		if p, ok := rs.players[connID]; ok {
			fn(rs, p)
			rs.mu.Unlock()
			return
		}
		rs.mu.Unlock()
	}
}

// roomOf returns the room currently holding connID.
func (c *Coordinator) roomOf(connID string) (string, bool) {
	for _, id := range c.order {
		rs := c.rooms[id]
		rs.mu.Lock()
		_, ok := rs.players[connID]
		rs.mu.Unlock()
		if ok {
			return id, true
		}
	}
	return "", false
}

// roster returns the wire view of every player in the room.
//
// Precondition: rs.mu must be held.
func (rs *roomState) roster() protocol.Roster {
	out := make(protocol.Roster, len(rs.players))
	for id, p := range rs.players {
		out[id] = p.View()
	}
	return out
}
