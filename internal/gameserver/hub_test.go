package gameserver_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/roomsync/internal/game/room"
	"github.com/cory-johannsen/roomsync/internal/game/session"
	"github.com/cory-johannsen/roomsync/internal/game/spawn"
	"github.com/cory-johannsen/roomsync/internal/gameserver"
	"github.com/cory-johannsen/roomsync/internal/protocol"
)

type fakeConn struct {
	id   string
	fail bool

	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(data []byte) error {
	if f.fail {
		return errors.New("send buffer full")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) events(t *testing.T) []protocol.Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Event, 0, len(f.frames))
	for _, frame := range f.frames {
		env, err := protocol.Decode(frame)
		require.NoError(t, err)
		out = append(out, env.Event)
	}
	return out
}

func (f *fakeConn) last(t *testing.T) protocol.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.frames)
	env, err := protocol.Decode(f.frames[len(f.frames)-1])
	require.NoError(t, err)
	return env
}

func newHubWith(t *testing.T, conns ...*fakeConn) *gameserver.Hub {
	h := gameserver.NewHub(zaptest.NewLogger(t))
	for _, c := range conns {
		h.Register(c)
	}
	return h
}

func TestHubSendTo(t *testing.T) {
	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	h := newHubWith(t, a, b)

	h.SendTo("a", protocol.EventPong, protocol.Pong{Timestamp: 5})

	assert.Equal(t, []protocol.Event{protocol.EventPong}, a.events(t))
	assert.Empty(t, b.events(t))

	var pong protocol.Pong
	require.NoError(t, a.last(t).DecodeData(&pong))
	assert.Equal(t, int64(5), pong.Timestamp)
}

func TestHubSendToUnknownIsNoop(t *testing.T) {
	h := newHubWith(t)
	h.SendTo("ghost", protocol.EventPong, protocol.Pong{})
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestHubSendToRoomOnlySubscribers(t *testing.T) {
	a, b, c := &fakeConn{id: "a"}, &fakeConn{id: "b"}, &fakeConn{id: "c"}
	h := newHubWith(t, a, b, c)
	h.Subscribe("a", "r1")
	h.Subscribe("b", "r1")
	h.Subscribe("c", "r2")

	h.SendToRoom("r1", protocol.EventPlayerCount, protocol.PlayerCount{Count: 2})

	assert.Len(t, a.events(t), 1)
	assert.Len(t, b.events(t), 1)
	assert.Empty(t, c.events(t))
}

func TestHubSendToRoomExcept(t *testing.T) {
	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	h := newHubWith(t, a, b)
	h.Subscribe("a", "r1")
	h.Subscribe("b", "r1")

	h.SendToRoomExcept("r1", "a", protocol.EventPlayerMoved, protocol.PlayerMoved{ID: "a"})

	assert.Empty(t, a.events(t))
	assert.Equal(t, []protocol.Event{protocol.EventPlayerMoved}, b.events(t))
}

func TestHubFailingRecipientDoesNotBlockOthers(t *testing.T) {
	bad, good := &fakeConn{id: "bad", fail: true}, &fakeConn{id: "good"}
	h := newHubWith(t, bad, good)
	h.Subscribe("bad", "r1")
	h.Subscribe("good", "r1")

	h.SendToRoom("r1", protocol.EventPlayerCount, protocol.PlayerCount{Count: 2})

	assert.Len(t, good.events(t), 1)
}

func TestHubUnsubscribe(t *testing.T) {
	a := &fakeConn{id: "a"}
	h := newHubWith(t, a)
	h.Subscribe("a", "r1")
	h.Unsubscribe("a", "r1")
	h.Unsubscribe("a", "r1")

	h.SendToRoom("r1", protocol.EventPlayerCount, protocol.PlayerCount{})
	assert.Empty(t, a.events(t))
}

func TestHubUnregisterDropsSubscriptions(t *testing.T) {
	a := &fakeConn{id: "a"}
	h := newHubWith(t, a)
	h.Subscribe("a", "r1")
	h.Unregister("a")

	assert.Equal(t, 0, h.ConnectionCount())
	h.Register(a)
	h.SendToRoom("r1", protocol.EventPlayerCount, protocol.PlayerCount{})
	assert.Empty(t, a.events(t))
}

func TestHubSubscribeUnknownIgnored(t *testing.T) {
	a := &fakeConn{id: "a"}
	h := newHubWith(t)
	h.Subscribe("a", "r1")
	h.Register(a)
	h.SendToRoom("r1", protocol.EventPlayerCount, protocol.PlayerCount{})
	assert.Empty(t, a.events(t))
}

func TestHubEncodingFailureDropsEvent(t *testing.T) {
	a := &fakeConn{id: "a"}
	h := newHubWith(t, a)
	h.Subscribe("a", "r1")

	h.SendToRoom("r1", protocol.EventNewPlayer, make(chan int))
	h.SendTo("a", protocol.EventNewPlayer, make(chan int))
	assert.Empty(t, a.events(t))
}

func TestHubWithCoordinatorJoinFlow(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := gameserver.NewHub(logger)
	sp, err := spawn.NewSpawner(spawn.NewSeededSource(3), spawn.DefaultBounds)
	require.NoError(t, err)
	coord := session.NewCoordinator(room.DefaultRegistry(), hub, sp, session.SystemClock{}, logger)

	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	hub.Register(a)
	hub.Register(b)

	require.NoError(t, coord.Join("a", "alice", "main-server"))
	require.NoError(t, coord.Join("b", "bob", "main-server"))

	assert.Equal(t, []protocol.Event{
		protocol.EventCurrentPlayers,
		protocol.EventPlayerCount,
		protocol.EventNewPlayer,
		protocol.EventPlayerCount,
	}, a.events(t))
	assert.Equal(t, []protocol.Event{
		protocol.EventCurrentPlayers,
		protocol.EventPlayerCount,
	}, b.events(t))

	coord.Move("a", &protocol.Vector3{X: 1}, nil)
	assert.Equal(t, protocol.EventPlayerMoved, b.last(t).Event)
	assert.Len(t, a.events(t), 4)

	coord.Leave("b")
	hub.Unregister("b")
	assert.Equal(t, []protocol.Event{
		protocol.EventCurrentPlayers,
		protocol.EventPlayerCount,
		protocol.EventNewPlayer,
		protocol.EventPlayerCount,
		protocol.EventPlayerDisconnected,
		protocol.EventPlayerCount,
	}, a.events(t))
}

func TestPropertyHubExcludedNeverReceives(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "n")
		h := gameserver.NewHub(zap.NewNop())
		conns := make([]*fakeConn, n)
		for i := range conns {
			conns[i] = &fakeConn{id: string(rune('a' + i))}
			h.Register(conns[i])
			h.Subscribe(conns[i].id, "r")
		}
		excluded := rapid.IntRange(0, n-1).Draw(rt, "excluded")

		h.SendToRoomExcept("r", conns[excluded].id, protocol.EventPlayerMoved, protocol.PlayerMoved{})

		for i, c := range conns {
			c.mu.Lock()
			got := len(c.frames)
			c.mu.Unlock()
			want := 1
			if i == excluded {
				want = 0
			}
			if got != want {
				rt.Fatalf("conn %s got %d frames, want %d", c.id, got, want)
			}
		}
	})
}
