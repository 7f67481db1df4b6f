package chat

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeConn implements Conn for tests: records transmitted frames and can be
// switched into a failing state to simulate a dead socket.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	broken bool
	closed int
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Transmit(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errors.New("broken pipe")
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeConn) fail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = true
}

func (f *fakeConn) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// received decodes everything the conn got, optionally filtered by kind.
func (f *fakeConn) received(t *testing.T, kind string) []Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []Envelope{}
	for _, raw := range f.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		if kind == "" || env.Kind == kind {
			out = append(out, env)
		}
	}
	return out
}

func newTestManager() *Manager {
	return NewManager(Options{PendingQueueCap: 16, NodeID: "test"})
}

func textEnvelope(t *testing.T, room, sender, text string) *Envelope {
	t.Helper()
	env, err := NewEnvelope(KindChatMessage, room, sender, map[string]string{"content": text})
	require.NoError(t, err)
	return env
}

func TestConnectRegistersRecipient(t *testing.T) {
	m := newTestManager()
	conn := newFakeConn("c1")

	require.True(t, m.Connect(conn, "alice", "group:7"))

	got, ok := m.Registry().ResolveRecipient("alice", "group:7")
	require.True(t, ok)
	require.Same(t, conn, got.(*fakeConn))
}

func TestSecondConnectEvictsFirst(t *testing.T) {
	m := newTestManager()
	first := newFakeConn("c1")
	second := newFakeConn("c2")

	m.Connect(first, "alice", "group:7")
	m.Connect(second, "alice", "group:7")

	// The first session was told why it died, then closed.
	require.Len(t, first.received(t, KindSessionReplaced), 1)
	require.Equal(t, 1, first.closeCount())

	// Only one registration survives and it is the second connection.
	got, ok := m.Registry().ResolveRecipient("alice", "group:7")
	require.True(t, ok)
	require.Same(t, second, got.(*fakeConn))
	require.Equal(t, 1, m.Registry().Len())

	// Subsequent sends reach only the second connection.
	m.Send("alice", "group:7", textEnvelope(t, "group:7", "bob", "hi"))
	require.Empty(t, first.received(t, KindChatMessage))
	require.Len(t, second.received(t, KindChatMessage), 1)
}

func TestEvictionEmitsNoLeaveEvent(t *testing.T) {
	m := newTestManager()
	watcher := newFakeConn("w")
	first := newFakeConn("c1")
	second := newFakeConn("c2")

	m.Connect(watcher, "bob", "group:7")
	m.Connect(first, "alice", "group:7")
	m.Connect(second, "alice", "group:7")

	// Bob saw alice join (twice, once per connect) but never saw her leave:
	// the user was replaced, not gone.
	require.Empty(t, watcher.received(t, KindUserDisconnected))
	require.Len(t, watcher.received(t, KindUserConnected), 2)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	m := newTestManager()
	alice := newFakeConn("a")
	bob := newFakeConn("b")

	m.Connect(alice, "alice", "group:7")
	m.Connect(bob, "bob", "group:7")

	m.Disconnect(alice)
	m.Disconnect(alice)

	// The second disconnect produced no second leave broadcast.
	require.Len(t, bob.received(t, KindUserDisconnected), 1)
	_, ok := m.Registry().ResolveRecipient("alice", "group:7")
	require.False(t, ok)
}

func TestOfflineSendQueuesAndReplaysInOrder(t *testing.T) {
	m := newTestManager()

	require.True(t, m.Send("alice", "group:7", textEnvelope(t, "group:7", "bob", "one")))
	require.True(t, m.Send("alice", "group:7", textEnvelope(t, "group:7", "bob", "two")))
	require.Equal(t, 2, m.pending.Depth("alice", "group:7"))

	alice := newFakeConn("a")
	m.Connect(alice, "alice", "group:7")

	msgs := alice.received(t, KindChatMessage)
	require.Len(t, msgs, 2)

	var p1, p2 map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &p1))
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &p2))
	require.Equal(t, "one", p1["content"])
	require.Equal(t, "two", p2["content"])

	// Drained whole: nothing left, and a reconnect replays nothing.
	require.Equal(t, 0, m.pending.Depth("alice", "group:7"))
	m.Disconnect(alice)
	again := newFakeConn("a2")
	m.Connect(again, "alice", "group:7")
	require.Empty(t, again.received(t, KindChatMessage))
}

func TestBroadcastExcludesSenderAndSurvivesFailure(t *testing.T) {
	m := newTestManager()
	alice := newFakeConn("a")
	bob := newFakeConn("b")
	carol := newFakeConn("c")

	m.Connect(alice, "alice", "group:7")
	m.Connect(bob, "bob", "group:7")
	m.Connect(carol, "carol", "group:7")
	carol.fail()

	n := m.Broadcast("group:7", textEnvelope(t, "group:7", "alice", "hi"), "alice")

	require.Equal(t, 1, n)
	require.Empty(t, alice.received(t, KindChatMessage))
	require.Len(t, bob.received(t, KindChatMessage), 1)

	// The failing recipient was disconnected, not retried and not queued.
	_, ok := m.Registry().ResolveRecipient("carol", "group:7")
	require.False(t, ok)
	require.GreaterOrEqual(t, carol.closeCount(), 1)
	require.Equal(t, 0, m.pending.Depth("carol", "group:7"))
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	m := newTestManager()
	require.Equal(t, 0, m.Broadcast("group:404", textEnvelope(t, "group:404", "x", "hi"), ""))
}

func TestDirectSendToDeadConnFallsBackToQueue(t *testing.T) {
	m := newTestManager()
	alice := newFakeConn("a")
	m.Connect(alice, "alice", "group:7")
	alice.fail()

	require.True(t, m.Send("alice", "group:7", textEnvelope(t, "group:7", "bob", "hi")))

	// The dead connection was removed and the frame waits for reconnect.
	_, ok := m.Registry().ResolveRecipient("alice", "group:7")
	require.False(t, ok)
	require.Equal(t, 1, m.pending.Depth("alice", "group:7"))

	fresh := newFakeConn("a2")
	m.Connect(fresh, "alice", "group:7")
	require.Len(t, fresh.received(t, KindChatMessage), 1)
}

func TestDisconnectUserEverywhere(t *testing.T) {
	m := newTestManager()
	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")

	m.Connect(c1, "alice", "group:7")
	m.Connect(c2, "alice", "file:3")

	require.True(t, m.IsOnline("alice", ""))
	require.Equal(t, 2, m.DisconnectUser("alice", ""))
	require.False(t, m.IsOnline("alice", ""))
	require.Equal(t, 0, m.Registry().Len())

	// Already gone: both forms are no-ops now.
	require.Equal(t, 0, m.DisconnectUser("alice", ""))
	require.Equal(t, 0, m.DisconnectUser("alice", "group:7"))
}

func TestOnlineMembers(t *testing.T) {
	m := newTestManager()
	m.Connect(newFakeConn("a"), "alice", "group:7")
	m.Connect(newFakeConn("b"), "bob", "group:7")
	m.Connect(newFakeConn("c"), "carol", "group:8")

	members := m.OnlineMembers("group:7")
	require.ElementsMatch(t, []string{"alice", "bob"}, members)
	require.Empty(t, m.OnlineMembers("group:404"))
}

func TestUserStoryQueueAcrossReconnect(t *testing.T) {
	m := newTestManager()
	room := "group:7"

	a := newFakeConn("a")
	b := newFakeConn("b")
	m.Connect(a, "A", room)
	m.Connect(b, "B", room)

	// B talks, A hears exactly one copy.
	require.Equal(t, 1, m.Broadcast(room, textEnvelope(t, room, "B", "first"), "B"))
	require.Len(t, a.received(t, KindChatMessage), 1)

	// A drops; B's direct message is queued, not delivered live.
	m.Disconnect(a)
	require.True(t, m.Send("A", room, textEnvelope(t, room, "B", "second")))
	require.Len(t, a.received(t, KindChatMessage), 1)
	require.Equal(t, 1, m.pending.Depth("A", room))

	// A returns and the backlog arrives exactly once.
	a2 := newFakeConn("a2")
	m.Connect(a2, "A", room)
	require.Len(t, a2.received(t, KindChatMessage), 1)
	require.Equal(t, 0, m.pending.Depth("A", room))
}
