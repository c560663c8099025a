// Package ws adapts gorilla/websocket connections to the room coordinator.
package ws

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one upgraded websocket connection with a bounded outbox.
// The write pump is the only goroutine that writes to conn.
type Client struct {
	id     string
	conn   *websocket.Conn
	outbox chan []byte
	mu     sync.Mutex
	closed bool
}

func newClient(id string, conn *websocket.Conn, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Client{
		id:     id,
		conn:   conn,
		outbox: make(chan []byte, bufferSize),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame for the write pump.
//
// Postcondition: Returns an error if the client is closed or its outbox is full.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client %s is closed", c.id)
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		return fmt.Errorf("client %s outbox full", c.id)
	}
}

// Close closes the outbox; the write pump then sends a close frame and exits.
// Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.outbox)
	}
}

// IsClosed reports whether Close has been called.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
