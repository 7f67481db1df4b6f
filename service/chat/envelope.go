package chat

import (
	"encoding/json"
	"strconv"
	"time"
)

// Envelope kinds. Chat and presence events flow through group rooms,
// file_update/init through file rooms.
const (
	KindChatMessage      = "chat_message"
	KindUserConnected    = "user_connected"
	KindUserDisconnected = "user_disconnected"
	KindSessionReplaced  = "session_replaced"
	KindFileUpdate       = "file_update"
	KindInit             = "init"
	KindAck              = "ack"
)

// Envelope is the unit of data the manager moves around. The payload is
// opaque to the core; the route layer decides what goes in it.
type Envelope struct {
	Kind    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	Sender  string          `json:"sender_id,omitempty"`
	Ts      int64           `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope stamps the send time and marshals the payload.
// A nil payload is allowed (presence events carry none).
func NewEnvelope(kind, room, sender string, payload any) (*Envelope, error) {
	env := &Envelope{
		Kind:   kind,
		RoomID: room,
		Sender: sender,
		Ts:     time.Now().UnixMilli(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return env, nil
}

// Encode serializes the envelope for the wire. The transport layer below
// the Conn abstraction treats the result as an opaque frame.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Room IDs. Chat groups and file-sync sessions share one manager; the
// prefix keeps their ID spaces apart.
func GroupRoom(groupID int64) string { return "group:" + strconv.FormatInt(groupID, 10) }
func FileRoom(fileID int64) string   { return "file:" + strconv.FormatInt(fileID, 10) }
