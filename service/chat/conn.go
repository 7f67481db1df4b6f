package chat

// Conn is the only view of a transport the manager ever sees: transmit a
// serialized envelope or close the channel. Both must be safe to call after
// the peer is gone; Close must be idempotent.
type Conn interface {
	ID() string
	Transmit(payload []byte) error
	Close() error
}
