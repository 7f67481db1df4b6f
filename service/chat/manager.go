package chat

import (
	"context"
	"time"

	"CollabProject/logger"
	"CollabProject/tools/safe"
)

// Tracker mirrors presence transitions into external storage (Redis).
// Optional; errors are logged and never affect delivery.
type Tracker interface {
	Online(ctx context.Context, userID, roomID string) error
	Offline(ctx context.Context, userID, roomID string, lastAnywhere bool) error
}

const trackerTimeout = 2 * time.Second

type Options struct {
	PendingQueueCap int     // per (user,room) backlog cap, 0 = unbounded
	Tracker         Tracker // nil disables external presence
	NodeID          string
}

// Manager is the façade the route layer talks to. It owns the registry, the
// pending store and the delivery engine, and implements the session state
// machine: a (user, room) pair is Absent until Connect registers it, Active
// until a transport error, an explicit disconnect or an eviction removes it,
// then Absent again. Disconnect is synchronous; there is no draining state.
type Manager struct {
	reg      *Registry
	pending  *PendingStore
	delivery *Delivery
	tracker  Tracker
	nodeID   string
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		reg:     NewRegistry(),
		pending: NewPendingStore(opts.PendingQueueCap),
		tracker: opts.Tracker,
		nodeID:  opts.NodeID,
	}
	// Dead connections found during delivery run the full disconnect path.
	m.delivery = NewDelivery(m.reg, m.pending, m.Disconnect)
	return m
}

func (m *Manager) Registry() *Registry { return m.reg }

// Connect makes (userID, roomID) Active on conn. Any previous connection
// for the pair is evicted: it gets a session_replaced notice and a close,
// but no "user left" broadcast, because the user never left the room. The
// join is announced to the other members (the joining user learns it
// succeeded by receiving its backlog and subsequent traffic), and the
// pending backlog is replayed to the new connection last, after
// registration, so a send racing this connect is either seen live or
// drained here.
func (m *Manager) Connect(conn Conn, userID, roomID string) bool {
	if conn == nil || userID == "" || roomID == "" {
		return false
	}

	evicted := m.reg.Register(conn, userID, roomID)
	if evicted != nil {
		if notice, err := NewEnvelope(KindSessionReplaced, roomID, userID, nil); err == nil {
			if raw, err := notice.Encode(); err == nil {
				_ = evicted.Transmit(raw)
			}
		}
		_ = evicted.Close()
		logger.Infof("[manager] evicted previous session user=%s room=%s conn=%s",
			userID, roomID, evicted.ID())
	}

	m.trackOnline(userID, roomID)

	joined, err := NewEnvelope(KindUserConnected, roomID, userID, nil)
	if err == nil {
		m.Broadcast(roomID, joined, userID)
	}

	replayed := m.delivery.FlushBacklog(conn, userID, roomID)
	if replayed > 0 {
		logger.Infof("[manager] replayed %d pending frames user=%s room=%s", replayed, userID, roomID)
	}
	return true
}

// Disconnect moves conn's pair back to Absent: remove from the registry,
// tell the remaining members, close the transport. Safe to call from the
// read loop, the write pump and an admin kick at once - only the call that
// wins the registry removal broadcasts the leave event, the rest reduce to
// an idempotent close.
func (m *Manager) Disconnect(conn Conn) {
	if conn == nil {
		return
	}
	userID, roomID, ok := m.reg.Remove(conn)
	if !ok {
		_ = conn.Close()
		return
	}

	m.trackOffline(userID, roomID)

	// Empty room: BroadcastToRoom sees no members and emits nothing.
	if left, err := NewEnvelope(KindUserDisconnected, roomID, userID, nil); err == nil {
		m.Broadcast(roomID, left, "")
	}

	_ = conn.Close()
	logger.Infof("[manager] disconnected user=%s room=%s conn=%s", userID, roomID, conn.ID())
}

// DisconnectUser closes the user's session in one room, or in every room
// when roomID is empty (logout). Returns the number of sessions closed.
func (m *Manager) DisconnectUser(userID, roomID string) int {
	if roomID != "" {
		if conn, ok := m.reg.ResolveRecipient(userID, roomID); ok {
			m.Disconnect(conn)
			return 1
		}
		return 0
	}

	count := 0
	for _, rid := range m.reg.ListUserRooms(userID) {
		if conn, ok := m.reg.ResolveRecipient(userID, rid); ok {
			m.Disconnect(conn)
			count++
		}
	}
	return count
}

// Send delivers the envelope to one user in a room, queuing it when the
// user is offline there. False only for malformed input.
func (m *Manager) Send(userID, roomID string, env *Envelope) bool {
	if userID == "" || roomID == "" || env == nil {
		return false
	}
	raw, err := env.Encode()
	if err != nil {
		logger.Errorf("[manager] encode envelope: %v", err)
		return false
	}
	return m.delivery.SendToUser(userID, roomID, raw)
}

// Broadcast fans the envelope out to the room's current members, skipping
// excludeUserID when non-empty. Returns how many members received it.
func (m *Manager) Broadcast(roomID string, env *Envelope, excludeUserID string) int {
	if roomID == "" || env == nil {
		return 0
	}
	raw, err := env.Encode()
	if err != nil {
		logger.Errorf("[manager] encode envelope: %v", err)
		return 0
	}
	return m.delivery.BroadcastToRoom(roomID, raw, excludeUserID)
}

// OnlineMembers returns the IDs of users currently connected to the room.
// Identity only; profile enrichment belongs to the caller.
func (m *Manager) OnlineMembers(roomID string) []string {
	members := m.reg.ResolveRoomMembers(roomID)
	out := make([]string, 0, len(members))
	for _, mem := range members {
		out = append(out, mem.UserID)
	}
	return out
}

// IsOnline reports whether the user holds a live connection, in one room or
// anywhere when roomID is empty.
func (m *Manager) IsOnline(userID, roomID string) bool {
	if roomID != "" {
		_, ok := m.reg.ResolveRecipient(userID, roomID)
		return ok
	}
	return len(m.reg.ListUserRooms(userID)) > 0
}

func (m *Manager) trackOnline(userID, roomID string) {
	if m.tracker == nil {
		return
	}
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), trackerTimeout)
		defer cancel()
		if err := m.tracker.Online(ctx, userID, roomID); err != nil {
			logger.Warnf("[manager] presence online user=%s room=%s err=%v", userID, roomID, err)
		}
	})
}

func (m *Manager) trackOffline(userID, roomID string) {
	if m.tracker == nil {
		return
	}
	last := len(m.reg.ListUserRooms(userID)) == 0
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), trackerTimeout)
		defer cancel()
		if err := m.tracker.Offline(ctx, userID, roomID, last); err != nil {
			logger.Warnf("[manager] presence offline user=%s room=%s err=%v", userID, roomID, err)
		}
	})
}
