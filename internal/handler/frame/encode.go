// Package frame implements the shared JSON wire protocol (spec.md §6.1):
// decoding and dispatching client frames, and encoding server frames for
// both the WebSocket and long-poll transports.
package frame

import (
	"encoding/json"
	"fmt"

	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/domain/model"
)

// wire frame type discriminators, pinned exactly to spec.md §6.1.
const (
	typeMessageNew      = "message.new"
	typeGroupMessageNew = "message.group.new"
	typeMessagesOffline = "messages.offline"
	typeMessageAck      = "message.ack"
	typeReadReceipt     = "message.read.receipt"
	typeTyping          = "typing"
	typePong            = "pong"
	typeError           = "error"
	typeConnected       = "connected"
	typeDisconnected    = "disconnected"
)

// Marshal encodes an outbound event.Eventer into its wire frame, flattening
// the payload's fields alongside the "type" discriminator (spec.md §6.1
// frame shapes are flat, not payload-nested).
func Marshal(ev event.Eventer) ([]byte, error) {
	switch ev.GetKind() {
	case event.KindMessageNew:
		return marshalFlat(typeMessageNew, ev.GetPayload())
	case event.KindGroupMessageNew:
		return marshalFlat(typeGroupMessageNew, ev.GetPayload())
	case event.KindOfflineBatch:
		return marshalFlat(typeMessagesOffline, ev.GetPayload())
	case event.KindAck:
		return marshalFlat(typeMessageAck, ev.GetPayload())
	case event.KindReadReceipt:
		return marshalFlat(typeReadReceipt, ev.GetPayload())
	case event.KindTyping:
		return marshalFlat(typeTyping, ev.GetPayload())
	case event.KindPong:
		return marshalFlat(typePong, ev.GetPayload())
	case event.KindError:
		return marshalFlat(typeError, ev.GetPayload())
	case event.KindConnected:
		return marshalFlat(typeConnected, ev.GetPayload())
	case event.KindDisconnected:
		return marshalFlat(typeDisconnected, ev.GetPayload())
	default:
		return nil, fmt.Errorf("frame: unknown event kind %d", ev.GetKind())
	}
}

// MarshalBatch encodes a slice of outbound events as a JSON array of wire
// frames, for transports (long-poll) that deliver several events per
// response instead of one frame per write.
func MarshalBatch(events []event.Eventer) ([]byte, error) {
	frames := make([]json.RawMessage, 0, len(events))
	for _, ev := range events {
		data, err := Marshal(ev)
		if err != nil {
			return nil, err
		}
		frames = append(frames, data)
	}
	return json.Marshal(frames)
}

// marshalFlat merges "type" into payload's own JSON fields by round
// tripping through a map — simpler and less error-prone than hand
// embedding a Type field into every payload struct.
func marshalFlat(frameType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("frame: marshal payload: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("frame: flatten payload: %w", err)
	}
	fields["type"] = frameType

	return json.Marshal(fields)
}

// ErrorFrame builds a wire-ready "error" frame for the given code.
func ErrorFrame(code model.ErrorCode, message string) []byte {
	data, err := marshalFlat(typeError, model.ErrorPayload{Code: code, Message: message})
	if err != nil {
		// ErrorPayload is a fixed, always-marshalable shape.
		panic(err)
	}
	return data
}
