package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1")

	require.Nil(t, r.Register(c, "alice", "group:1"))

	got, ok := r.ResolveRecipient("alice", "group:1")
	require.True(t, ok)
	require.Same(t, c, got.(*fakeConn))

	_, ok = r.ResolveRecipient("alice", "group:2")
	require.False(t, ok)
	_, ok = r.ResolveRecipient("bob", "group:1")
	require.False(t, ok)
}

func TestRegistryRegisterReturnsEvicted(t *testing.T) {
	r := NewRegistry()
	first := newFakeConn("c1")
	second := newFakeConn("c2")

	require.Nil(t, r.Register(first, "alice", "group:1"))
	evicted := r.Register(second, "alice", "group:1")
	require.Same(t, first, evicted.(*fakeConn))
	require.Equal(t, 1, r.Len())

	// The evicted connection is fully forgotten; removing it is a no-op.
	_, _, ok := r.Remove(first)
	require.False(t, ok)

	got, _ := r.ResolveRecipient("alice", "group:1")
	require.Same(t, second, got.(*fakeConn))
}

func TestRegistryReRegisterSameConn(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1")

	r.Register(c, "alice", "group:1")
	require.Nil(t, r.Register(c, "alice", "group:1"))
	require.Equal(t, 1, r.Len())
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1")
	r.Register(c, "alice", "group:1")

	user, room, ok := r.Remove(c)
	require.True(t, ok)
	require.Equal(t, "alice", user)
	require.Equal(t, "group:1", room)

	_, _, ok = r.Remove(c)
	require.False(t, ok)
	require.Equal(t, 0, r.Len())
	require.Empty(t, r.ResolveRoomMembers("group:1"))
	require.Empty(t, r.ListUserRooms("alice"))
}

func TestRegistryRoomSnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Register(newFakeConn("a"), "alice", "group:1")
	r.Register(newFakeConn("b"), "bob", "group:1")

	snap := r.ResolveRoomMembers("group:1")
	require.Len(t, snap, 2)

	// Mutating the registry afterwards must not touch the snapshot.
	conn, _ := r.ResolveRecipient("alice", "group:1")
	r.Remove(conn)
	require.Len(t, snap, 2)
	require.Len(t, r.ResolveRoomMembers("group:1"), 1)
}

func TestRegistryListUserRooms(t *testing.T) {
	r := NewRegistry()
	r.Register(newFakeConn("c1"), "alice", "group:1")
	r.Register(newFakeConn("c2"), "alice", "file:9")

	require.ElementsMatch(t, []string{"group:1", "file:9"}, r.ListUserRooms("alice"))
	require.Empty(t, r.ListUserRooms("bob"))
}

// audit walks all three indexes and fails if they disagree. Runs unlocked,
// so only call it while no other goroutine touches the registry.
func (r *Registry) audit(t *testing.T) {
	t.Helper()

	for conn, key := range r.byConn {
		require.Equal(t, conn, r.byRoom[key.roomID][key.userID],
			"byConn entry missing from byRoom for %v", key)
		require.Equal(t, conn, r.byUser[key.userID][key.roomID],
			"byConn entry missing from byUser for %v", key)
	}
	total := 0
	for roomID, users := range r.byRoom {
		require.NotEmpty(t, users, "empty inner map left in byRoom[%s]", roomID)
		for userID, conn := range users {
			key, ok := r.byConn[conn]
			require.True(t, ok, "byRoom conn unknown to byConn")
			require.Equal(t, pairKey{userID: userID, roomID: roomID}, key)
			total++
		}
	}
	require.Equal(t, len(r.byConn), total)
	for userID, rooms := range r.byUser {
		require.NotEmpty(t, rooms, "empty inner map left in byUser[%s]", userID)
	}
}

func TestRegistryConcurrentChurnKeepsIndexesConsistent(t *testing.T) {
	r := NewRegistry()

	// Workers fight over a small set of (user, room) pairs so evictions,
	// removals and re-registrations constantly overlap.
	const workers = 8
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				user := fmt.Sprintf("user-%d", i%3)
				room := fmt.Sprintf("group:%d", i%2)
				c := newFakeConn(fmt.Sprintf("w%d-i%d", w, i))
				r.Register(c, user, room)
				r.ResolveRoomMembers(room)
				r.ListUserRooms(user)
				if i%2 == 0 {
					r.Remove(c)
				}
			}
		}(w)
	}
	wg.Wait()

	r.audit(t)
	// At most one live connection per contested pair.
	require.LessOrEqual(t, r.Len(), 6)
}
