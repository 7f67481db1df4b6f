package chat

import "CollabProject/logger"

// Delivery moves frames to recipients. It resolves targets through the
// registry, falls back to the pending store for offline direct sends, and
// reports dead connections upward through onDead, which runs the full
// disconnect path (registry removal, presence broadcast, close).
//
// Transmits always happen outside registry locks: Transmit on a live client
// is a buffered enqueue, but the Conn contract doesn't forbid blocking
// implementations, and a stuck socket must never hold up the indexes.
type Delivery struct {
	reg     *Registry
	pending *PendingStore
	onDead  func(Conn)
}

func NewDelivery(reg *Registry, pending *PendingStore, onDead func(Conn)) *Delivery {
	if onDead == nil {
		onDead = func(Conn) {}
	}
	return &Delivery{reg: reg, pending: pending, onDead: onDead}
}

// SendToUser transmits to the live connection for (user, room), or queues
// the frame when there is none. Queued counts as success: "recipient
// offline" is a supported outcome, not an error the caller must handle.
// A transmit failure disconnects that connection and falls through to the
// offline path so the frame is not lost.
func (d *Delivery) SendToUser(userID, roomID string, payload []byte) bool {
	if conn, ok := d.reg.ResolveRecipient(userID, roomID); ok {
		if err := conn.Transmit(payload); err == nil {
			return true
		} else {
			logger.Warnf("[delivery] transmit failed user=%s room=%s conn=%s err=%v",
				userID, roomID, conn.ID(), err)
			d.onDead(conn)
		}
	}

	d.pending.Enqueue(userID, roomID, payload)

	// Reconnect race: if the pair registered between our lookup and the
	// enqueue, the connect-time drain may already have run and missed this
	// frame. Re-checking after the enqueue closes the window: either the
	// drain saw our frame, or we see the new connection here and flush.
	if conn, ok := d.reg.ResolveRecipient(userID, roomID); ok {
		d.FlushBacklog(conn, userID, roomID)
	}
	return true
}

// BroadcastToRoom snapshots the room and transmits to every member except
// excludeUserID. A failing recipient is disconnected and skipped; it never
// stops delivery to the rest, and nothing is queued for it - broadcast is
// live-only. Returns the number of successful transmits.
func (d *Delivery) BroadcastToRoom(roomID string, payload []byte, excludeUserID string) int {
	members := d.reg.ResolveRoomMembers(roomID)
	if len(members) == 0 {
		return 0
	}

	delivered := 0
	for _, m := range members {
		if excludeUserID != "" && m.UserID == excludeUserID {
			continue
		}
		if err := m.Conn.Transmit(payload); err != nil {
			logger.Warnf("[delivery] broadcast transmit failed user=%s room=%s err=%v",
				m.UserID, roomID, err)
			d.onDead(m.Conn)
			continue
		}
		delivered++
	}
	return delivered
}

// FlushBacklog drains the pending queue for (user, room) and replays it to
// conn in order. If a transmit fails mid-replay the unsent remainder is
// requeued ahead of newer frames and the connection is disconnected, so the
// next connect picks up exactly where this one died. Returns frames sent.
func (d *Delivery) FlushBacklog(conn Conn, userID, roomID string) int {
	backlog := d.pending.DrainAll(userID, roomID)
	for i, payload := range backlog {
		if err := conn.Transmit(payload); err != nil {
			logger.Warnf("[delivery] backlog replay died user=%s room=%s sent=%d/%d err=%v",
				userID, roomID, i, len(backlog), err)
			d.pending.Requeue(userID, roomID, backlog[i:])
			d.onDead(conn)
			return i
		}
	}
	return len(backlog)
}
