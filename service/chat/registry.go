package chat

import "sync"

type pairKey struct {
	userID string
	roomID string
}

// Member is one entry of a room snapshot.
type Member struct {
	UserID string
	Conn   Conn
}

// Registry is the authoritative index of live connections. Three maps cover
// every lookup direction the manager needs: by room for broadcast, by user
// for disconnect-everywhere, by conn for "who just failed". A connection is
// present in all three or in none; every mutation happens under one lock so
// readers can never observe a torn update.
//
// One global mutex is deliberate: registrations are rare next to deliveries,
// and deliveries only take the read lock for a point lookup or a snapshot.
// Sharding by room is the upgrade path if the lock ever shows up in profiles.
type Registry struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]Conn // roomID -> userID -> conn
	byUser map[string]map[string]Conn // userID -> roomID -> conn
	byConn map[Conn]pairKey
}

func NewRegistry() *Registry {
	return &Registry{
		byRoom: make(map[string]map[string]Conn),
		byUser: make(map[string]map[string]Conn),
		byConn: make(map[Conn]pairKey),
	}
}

// Register inserts conn under (userID, roomID). If another connection holds
// the pair it is removed from all indexes first and returned, so the caller
// can close it; this is what keeps at most one live session per pair.
func (r *Registry) Register(conn Conn, userID, roomID string) (evicted Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byRoom[roomID][userID]; ok && prev != conn {
		evicted = prev
		r.dropLocked(prev, userID, roomID)
	}

	if r.byRoom[roomID] == nil {
		r.byRoom[roomID] = make(map[string]Conn)
	}
	r.byRoom[roomID][userID] = conn

	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]Conn)
	}
	r.byUser[userID][roomID] = conn

	r.byConn[conn] = pairKey{userID: userID, roomID: roomID}
	return evicted
}

// Remove deletes conn from all indexes. Reports the identity it held, or
// ok=false when the conn was never registered or already removed; a double
// remove is a no-op, which is what makes concurrent disconnects safe.
func (r *Registry) Remove(conn Conn) (userID, roomID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, found := r.byConn[conn]
	if !found {
		return "", "", false
	}
	r.dropLocked(conn, key.userID, key.roomID)
	return key.userID, key.roomID, true
}

// ResolveRecipient is the point lookup used by direct sends.
func (r *Registry) ResolveRecipient(userID, roomID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byRoom[roomID][userID]
	return conn, ok
}

// ResolveRoomMembers returns a copy of the room's current members. The
// caller iterates and transmits without holding any registry lock.
func (r *Registry) ResolveRoomMembers(roomID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := r.byRoom[roomID]
	if len(users) == 0 {
		return nil
	}
	out := make([]Member, 0, len(users))
	for uid, conn := range users {
		out = append(out, Member{UserID: uid, Conn: conn})
	}
	return out
}

// ListUserRooms returns the rooms the user currently holds a connection in,
// for logout-everywhere.
func (r *Registry) ListUserRooms(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := r.byUser[userID]
	if len(rooms) == 0 {
		return nil
	}
	out := make([]string, 0, len(rooms))
	for rid := range rooms {
		out = append(out, rid)
	}
	return out
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// dropLocked removes one connection from all three indexes, deleting inner
// maps that become empty. The only place index cleanup is written out.
func (r *Registry) dropLocked(conn Conn, userID, roomID string) {
	if users, ok := r.byRoom[roomID]; ok {
		if users[userID] == conn {
			delete(users, userID)
			if len(users) == 0 {
				delete(r.byRoom, roomID)
			}
		}
	}
	if rooms, ok := r.byUser[userID]; ok {
		if rooms[roomID] == conn {
			delete(rooms, roomID)
			if len(rooms) == 0 {
				delete(r.byUser, userID)
			}
		}
	}
	delete(r.byConn, conn)
}
