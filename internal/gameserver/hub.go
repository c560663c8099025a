// Package gameserver holds the delivery and background machinery around the
// session coordinator: the broadcast hub, the idle reaper, and the admin health service.
package gameserver

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomsync/internal/protocol"
)

// Conn is a registered outbound endpoint.
type Conn interface {
	ID() string
	// Send queues one encoded frame. It must not block on a slow peer.
	Send(data []byte) error
}

// Hub tracks live connections and their room subscriptions and fans events out to them.
// Delivery is best-effort: a failing recipient never affects the others.
//
// Invariant: every subscribed ID is also registered.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	rooms  map[string]map[string]struct{} // room ID → connection IDs
	logger *zap.Logger
}

// NewHub creates an empty Hub.
//
// Precondition: logger must be non-nil.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]Conn),
		rooms:  make(map[string]map[string]struct{}),
		logger: logger,
	}
}

// Register adds c, replacing any connection with the same ID.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Unregister removes the connection and all of its subscriptions.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Subscribe adds connID to the delivery set of roomID. Unknown connections are ignored.
func (h *Hub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; !ok {
		return
	}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	members[connID] = struct{}{}
}

// Unsubscribe removes connID from the delivery set of roomID.
func (h *Hub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// SendTo delivers one event to a single connection.
func (h *Hub) SendTo(connID string, event protocol.Event, payload any) {
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	c, found := h.conns[connID]
	h.mu.RUnlock()
	if !found {
		return
	}
	h.deliver(c, event, data)
}

// SendToRoom delivers one event to every subscriber of roomID.
func (h *Hub) SendToRoom(roomID string, event protocol.Event, payload any) {
	h.SendToRoomExcept(roomID, "", event, payload)
}

// SendToRoomExcept delivers one event to every subscriber of roomID other than excludeConnID.
// The payload is encoded once.
func (h *Hub) SendToRoomExcept(roomID, excludeConnID string, event protocol.Event, payload any) {
	recipients := h.members(roomID, excludeConnID)
	if len(recipients) == 0 {
		return
	}
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}
	for _, c := range recipients {
		h.deliver(c, event, data)
	}
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// members snapshots the recipients so sends happen outside the lock.
func (h *Hub) members(roomID, excludeConnID string) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := h.rooms[roomID]
	out := make([]Conn, 0, len(ids))
	for id := range ids {
		if id == excludeConnID {
			continue
		}
		if c, ok := h.conns[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) encode(event protocol.Event, payload any) ([]byte, bool) {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		h.logger.Error("encoding event", zap.String("event", string(event)), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (h *Hub) deliver(c Conn, event protocol.Event, data []byte) {
	if err := c.Send(data); err != nil {
		h.logger.Debug("dropping event for connection",
			zap.String("conn_id", c.ID()),
			zap.String("event", string(event)),
			zap.Error(err),
		)
	}
}
