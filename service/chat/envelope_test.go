package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeEncode(t *testing.T) {
	env, err := NewEnvelope(KindChatMessage, "group:7", "alice", map[string]string{"content": "hi"})
	require.NoError(t, err)
	require.InDelta(t, time.Now().UnixMilli(), env.Ts, 5000)

	raw, err := env.Encode()
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.JSONEq(t, `"chat_message"`, string(decoded["type"]))
	require.JSONEq(t, `"group:7"`, string(decoded["room_id"]))
	require.JSONEq(t, `"alice"`, string(decoded["sender_id"]))
	require.JSONEq(t, `{"content":"hi"}`, string(decoded["payload"]))
}

func TestEnvelopeNilPayloadOmitted(t *testing.T) {
	env, err := NewEnvelope(KindUserConnected, "group:7", "alice", nil)
	require.NoError(t, err)

	raw, err := env.Encode()
	require.NoError(t, err)
	require.NotContains(t, string(raw), "payload")
}

func TestRoomIDs(t *testing.T) {
	require.Equal(t, "group:42", GroupRoom(42))
	require.Equal(t, "file:9", FileRoom(9))
}
