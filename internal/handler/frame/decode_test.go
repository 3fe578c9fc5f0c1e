package frame

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Merrick1307/chat-core/internal/domain/model"
	"github.com/Merrick1307/chat-core/internal/domain/registry"
	"github.com/Merrick1307/chat-core/internal/service"
)

// fakeDeliverer is a minimal service.Deliverer test double recording calls
// instead of touching the Registry/Presence Store/Message Store.
type fakeDeliverer struct {
	sendDirectErr error
	sendGroupErr  error
	markReadErr   error

	lastTypingRecipient *uuid.UUID
	lastTypingGroup     *uuid.UUID
	lastTypingIsTyping  bool
	typingCalled        bool
}

func (d *fakeDeliverer) Subscribe(ctx context.Context, userID uuid.UUID) (registry.Connector, error) {
	return nil, nil
}
func (d *fakeDeliverer) Unsubscribe(userID, connID uuid.UUID) bool { return true }

func (d *fakeDeliverer) SendDirect(ctx context.Context, senderID, recipientID uuid.UUID, content, kind string) (model.AckPayload, error) {
	if d.sendDirectErr != nil {
		return model.AckPayload{}, d.sendDirectErr
	}
	return model.AckPayload{MessageID: uuid.New(), Delivered: true, Timestamp: "2026-07-31T00:00:00.000Z"}, nil
}

func (d *fakeDeliverer) SendGroup(ctx context.Context, senderID, groupID uuid.UUID, content, kind string) (model.AckPayload, error) {
	if d.sendGroupErr != nil {
		return model.AckPayload{}, d.sendGroupErr
	}
	return model.AckPayload{MessageID: uuid.New(), Delivered: true, Timestamp: "2026-07-31T00:00:00.000Z"}, nil
}

func (d *fakeDeliverer) MarkRead(ctx context.Context, readerID, messageID uuid.UUID) error {
	return d.markReadErr
}

func (d *fakeDeliverer) RelayTyping(senderID uuid.UUID, recipientID, groupID *uuid.UUID, isTyping bool) {
	d.typingCalled = true
	d.lastTypingRecipient = recipientID
	d.lastTypingGroup = groupID
	d.lastTypingIsTyping = isTyping
}

// fakeHeartbeat is a minimal service.Heartbeat test double recording
// ping refreshes instead of touching the Presence Store.
type fakeHeartbeat struct {
	pingCount int
}

func (h *fakeHeartbeat) OnConnect(ctx context.Context, userID uuid.UUID) error { return nil }
func (h *fakeHeartbeat) OnPing(ctx context.Context, userID uuid.UUID) error {
	h.pingCount++
	return nil
}
func (h *fakeHeartbeat) OnDisconnect(ctx context.Context, userID uuid.UUID, wentOffline bool) error {
	return nil
}

func decodeFields(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	return fields
}

func TestRouter_Handle_MalformedJSON(t *testing.T) {
	r := NewRouter(&fakeDeliverer{}, &fakeHeartbeat{}, slog.Default())
	fields := decodeFields(t, r.Handle(context.Background(), uuid.New(), []byte("{not json")))
	require.Equal(t, "error", fields["type"])
	require.Equal(t, string(model.ErrInvalidJSON), fields["code"])
}

func TestRouter_Handle_UnknownType(t *testing.T) {
	r := NewRouter(&fakeDeliverer{}, &fakeHeartbeat{}, slog.Default())
	fields := decodeFields(t, r.Handle(context.Background(), uuid.New(), []byte(`{"type":"bogus"}`)))
	require.Equal(t, string(model.ErrUnknownType), fields["code"])
}

func TestRouter_Handle_MessageSend_RequiresRecipient(t *testing.T) {
	r := NewRouter(&fakeDeliverer{}, &fakeHeartbeat{}, slog.Default())
	fields := decodeFields(t, r.Handle(context.Background(), uuid.New(), []byte(`{"type":"message.send","content":"hi"}`)))
	require.Equal(t, string(model.ErrMissingRecipient), fields["code"])
}

func TestRouter_Handle_MessageSend_ReturnsAck(t *testing.T) {
	r := NewRouter(&fakeDeliverer{}, &fakeHeartbeat{}, slog.Default())
	recipient := uuid.New()
	raw := []byte(`{"type":"message.send","recipient_id":"` + recipient.String() + `","content":"hi"}`)
	fields := decodeFields(t, r.Handle(context.Background(), uuid.New(), raw))
	require.Equal(t, "message.ack", fields["type"])
	require.Equal(t, true, fields["delivered"])
}

func TestRouter_Handle_MessageSend_MapsSentinelError(t *testing.T) {
	r := NewRouter(&fakeDeliverer{sendDirectErr: service.ErrEmptyContent}, &fakeHeartbeat{}, slog.Default())
	recipient := uuid.New()
	raw := []byte(`{"type":"message.send","recipient_id":"` + recipient.String() + `","content":"hi"}`)
	fields := decodeFields(t, r.Handle(context.Background(), uuid.New(), raw))
	require.Equal(t, string(model.ErrEmptyContent), fields["code"])
}

func TestRouter_Handle_GroupMessageSend_RequiresGroup(t *testing.T) {
	r := NewRouter(&fakeDeliverer{}, &fakeHeartbeat{}, slog.Default())
	fields := decodeFields(t, r.Handle(context.Background(), uuid.New(), []byte(`{"type":"message.group.send","content":"hi"}`)))
	require.Equal(t, string(model.ErrMissingGroup), fields["code"])
}

func TestRouter_Handle_MessageRead_RequiresMessageID(t *testing.T) {
	r := NewRouter(&fakeDeliverer{}, &fakeHeartbeat{}, slog.Default())
	fields := decodeFields(t, r.Handle(context.Background(), uuid.New(), []byte(`{"type":"message.read"}`)))
	require.Equal(t, string(model.ErrMissingMessageID), fields["code"])
}

func TestRouter_Handle_MessageRead_NoReplyOnSuccess(t *testing.T) {
	r := NewRouter(&fakeDeliverer{}, &fakeHeartbeat{}, slog.Default())
	raw := []byte(`{"type":"message.read","message_id":"` + uuid.New().String() + `"}`)
	require.Nil(t, r.Handle(context.Background(), uuid.New(), raw))
}

func TestRouter_Handle_Typing_NoReplyAndRelays(t *testing.T) {
	deliverer := &fakeDeliverer{}
	r := NewRouter(deliverer, &fakeHeartbeat{}, slog.Default())
	recipient := uuid.New()
	raw := []byte(`{"type":"typing","recipient_id":"` + recipient.String() + `","is_typing":true}`)

	require.Nil(t, r.Handle(context.Background(), uuid.New(), raw))
	require.True(t, deliverer.typingCalled)
	require.Equal(t, recipient, *deliverer.lastTypingRecipient)
	require.True(t, deliverer.lastTypingIsTyping)
}

func TestRouter_Handle_Ping_RepliesPong(t *testing.T) {
	hb := &fakeHeartbeat{}
	r := NewRouter(&fakeDeliverer{}, hb, slog.Default())
	fields := decodeFields(t, r.Handle(context.Background(), uuid.New(), []byte(`{"type":"ping"}`)))
	require.Equal(t, "pong", fields["type"])
	require.Equal(t, 1, hb.pingCount, "ping must refresh the presence TTL")
}
