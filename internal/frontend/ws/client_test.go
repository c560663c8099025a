package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendQueues(t *testing.T) {
	c := newClient("c1", nil, 2)
	require.NoError(t, c.Send([]byte("a")))
	require.NoError(t, c.Send([]byte("b")))
	assert.Equal(t, "c1", c.ID())
	assert.Equal(t, []byte("a"), <-c.outbox)
}

func TestClientSendFullReturnsError(t *testing.T) {
	c := newClient("c1", nil, 1)
	require.NoError(t, c.Send([]byte("a")))
	err := c.Send([]byte("b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox full")
}

func TestClientCloseIdempotent(t *testing.T) {
	c := newClient("c1", nil, 1)
	c.Close()
	c.Close()
	assert.True(t, c.IsClosed())

	err := c.Send([]byte("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	_, ok := <-c.outbox
	assert.False(t, ok)
}

func TestClientDefaultBuffer(t *testing.T) {
	c := newClient("c1", nil, 0)
	assert.Equal(t, 64, cap(c.outbox))
}
