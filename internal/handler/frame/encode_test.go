package frame

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/domain/model"
)

func TestMarshal_FlattensPayloadWithTypeDiscriminator(t *testing.T) {
	recipient := uuid.New()
	payload := model.MessageNewPayload{
		MessageID:      uuid.New(),
		SenderID:       uuid.New(),
		SenderUsername: "alice",
		Content:        "hi",
		MessageType:    "text",
		CreatedAt:      "2026-07-31T00:00:00.000Z",
	}
	ev := event.NewMessageNewEvent(recipient, payload)

	raw, err := Marshal(ev)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Equal(t, "message.new", fields["type"])
	require.Equal(t, "alice", fields["sender_username"])
	require.Equal(t, "hi", fields["content"])
}

func TestMarshal_PongHasNoExtraFields(t *testing.T) {
	raw, err := Marshal(event.NewPongEvent(uuid.New(), model.PongPayload{}))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Equal(t, map[string]any{"type": "pong"}, fields)
}

func TestErrorFrame_CarriesCodeAndMessage(t *testing.T) {
	raw := ErrorFrame(model.ErrInvalidJSON, "bad json")

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Equal(t, "error", fields["type"])
	require.Equal(t, string(model.ErrInvalidJSON), fields["code"])
	require.Equal(t, "bad json", fields["message"])
}
