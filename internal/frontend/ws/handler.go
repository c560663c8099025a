package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomsync/internal/config"
	"github.com/cory-johannsen/roomsync/internal/gameserver"
	"github.com/cory-johannsen/roomsync/internal/protocol"
)

const welcomeMessage = "Connected to game server"

// Coordinator is the subset of the session coordinator driven by client events.
type Coordinator interface {
	Join(connID, name, roomID string) error
	Move(connID string, position, rotation *protocol.Vector3)
	Leave(connID string)
	Touch(connID string)
}

// Hub registers connections for delivery.
type Hub interface {
	Register(c gameserver.Conn)
	Unregister(connID string)
	SendTo(connID string, event protocol.Event, payload any)
}

// Handler upgrades HTTP requests to websocket clients and pumps their events.
type Handler struct {
	cfg      config.SocketConfig
	origins  map[string]bool
	anyOrig  bool
	upgrader websocket.Upgrader
	hub      Hub
	coord    Coordinator
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[string]*Client
	wg      sync.WaitGroup
}

// NewHandler creates a Handler.
//
// Precondition: hub, coord, and logger must be non-nil.
// Postcondition: Origins are matched exactly; "*" admits any origin.
func NewHandler(cfg config.SocketConfig, allowedOrigins []string, hub Hub, coord Coordinator, logger *zap.Logger) *Handler {
	h := &Handler{
		cfg:     cfg,
		origins: make(map[string]bool, len(allowedOrigins)),
		hub:     hub,
		coord:   coord,
		logger:  logger,
		clients: make(map[string]*Client),
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			h.anyOrig = true
		}
		h.origins[o] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.anyOrig || h.origins[origin]
}

// ServeHTTP upgrades the request and starts the client pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := newClient(uuid.NewString(), conn, h.cfg.SendBuffer)
	if !h.track(c) {
		_ = conn.Close()
		return
	}
	h.hub.Register(c)
	h.logger.Info("client connected",
		zap.String("conn_id", c.id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	h.hub.SendTo(c.id, protocol.EventWelcome, protocol.Welcome{
		Message:   welcomeMessage,
		SocketID:  c.id,
		Timestamp: time.Now().UnixMilli(),
	})

	h.wg.Add(2)
	go h.writePump(c)
	go h.readPump(c)
}

// Shutdown closes every live client and waits for their pumps to exit.
//
// Postcondition: Returns nil once all pumps are done, or ctx.Err() on timeout.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = nil
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.logger.Info("websocket clients drained", zap.Int("count", len(clients)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of live clients.
func (h *Handler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// track records c; it returns false after Shutdown.
func (h *Handler) track(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients == nil {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Handler) untrack(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients != nil {
		delete(h.clients, c.id)
	}
}

func (h *Handler) readPump(c *Client) {
	start := time.Now()
	defer func() {
		h.coord.Leave(c.id)
		h.hub.Unregister(c.id)
		c.Close()
		_ = c.conn.Close()
		h.untrack(c)
		h.logger.Info("client disconnected",
			zap.String("conn_id", c.id),
			zap.Duration("elapsed", time.Since(start)),
		)
		h.wg.Done()
	}()

	c.conn.SetReadLimit(h.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		if messageType != websocket.TextMessage {
			continue
		}
		h.dispatch(c, frame)
	}
}

func (h *Handler) dispatch(c *Client, frame []byte) {
	env, err := protocol.Decode(frame)
	if err != nil {
		h.logger.Debug("ignoring malformed frame", zap.String("conn_id", c.id), zap.Error(err))
		return
	}

	switch env.Event {
	case protocol.EventJoin:
		var req protocol.JoinRequest
		if err := env.DecodeData(&req); err != nil {
			h.logger.Debug("ignoring malformed join", zap.String("conn_id", c.id), zap.Error(err))
			return
		}
		// Rejections are reported to the client by the coordinator.
		_ = h.coord.Join(c.id, req.Username, req.Room)
	case protocol.EventPlayerMovement:
		var req protocol.MoveRequest
		if err := env.DecodeData(&req); err != nil {
			h.logger.Debug("ignoring malformed movement", zap.String("conn_id", c.id), zap.Error(err))
			return
		}
		h.coord.Move(c.id, req.Position, req.Rotation)
	case protocol.EventPing:
		h.coord.Touch(c.id)
		h.hub.SendTo(c.id, protocol.EventPong, protocol.Pong{Timestamp: time.Now().UnixMilli()})
	default:
		h.logger.Debug("ignoring unknown event",
			zap.String("conn_id", c.id),
			zap.String("event", string(env.Event)),
		)
	}
}

func (h *Handler) writePump(c *Client) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		h.wg.Done()
	}()

	for {
		select {
		case frame, ok := <-c.outbox:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					h.logger.Debug("websocket write failed", zap.String("conn_id", c.id), zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
