package chat

import "sync"

// PendingStore keeps serialized envelopes for recipients that are offline in
// a room, keyed by (user, room). Queues are FIFO and drained whole on the
// next connect; a partially drained queue never survives.
//
// Only direct sends queue here. Broadcast fan-out is live-only on purpose:
// presence/chat fan-out is best-effort, direct sends are the acknowledged
// path. Changing that policy means changing the delivery engine, not this
// store.
type PendingStore struct {
	mu     sync.Mutex
	maxLen int // per-pair cap, <=0 means unbounded
	queues map[pairKey][][]byte
}

func NewPendingStore(maxLen int) *PendingStore {
	return &PendingStore{
		maxLen: maxLen,
		queues: make(map[pairKey][][]byte),
	}
}

// Enqueue appends one frame, creating the queue on first use. When the cap
// is hit the oldest frame drops, bounding memory under a sustained sender.
func (p *PendingStore) Enqueue(userID, roomID string, payload []byte) {
	key := pairKey{userID: userID, roomID: roomID}

	p.mu.Lock()
	defer p.mu.Unlock()

	q := append(p.queues[key], payload)
	if p.maxLen > 0 && len(q) > p.maxLen {
		q = q[len(q)-p.maxLen:]
	}
	p.queues[key] = q
}

// Requeue puts frames back at the head, preserving their order before
// anything enqueued since. Used when a backlog replay dies mid-flight.
func (p *PendingStore) Requeue(userID, roomID string, payloads [][]byte) {
	if len(payloads) == 0 {
		return
	}
	key := pairKey{userID: userID, roomID: roomID}

	p.mu.Lock()
	defer p.mu.Unlock()

	q := append(payloads, p.queues[key]...)
	if p.maxLen > 0 && len(q) > p.maxLen {
		q = q[len(q)-p.maxLen:]
	}
	p.queues[key] = q
}

// DrainAll removes and returns the whole queue in enqueue order and deletes
// it. An absent pair yields nil, not an error.
func (p *PendingStore) DrainAll(userID, roomID string) [][]byte {
	key := pairKey{userID: userID, roomID: roomID}

	p.mu.Lock()
	defer p.mu.Unlock()

	q := p.queues[key]
	delete(p.queues, key)
	return q
}

// Depth reports the queue length for a pair.
func (p *PendingStore) Depth(userID, roomID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queues[pairKey{userID: userID, roomID: roomID}])
}
