package frame

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Merrick1307/chat-core/internal/domain/model"
	"github.com/Merrick1307/chat-core/internal/service"
)

// client frame type discriminators, pinned exactly to spec.md §6.1.
const (
	clientTypeMessageSend      = "message.send"
	clientTypeGroupMessageSend = "message.group.send"
	clientTypeMessageRead      = "message.read"
	clientTypeTyping           = "typing"
	clientTypePing             = "ping"
)

type clientFrame struct {
	Type        string     `json:"type"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
	Content     string     `json:"content,omitempty"`
	MessageType string     `json:"message_type,omitempty"`
	MessageID   *uuid.UUID `json:"message_id,omitempty"`
	IsTyping    *bool      `json:"is_typing,omitempty"`
}

// Router dispatches decoded client frames onto the Delivery Engine. One
// instance is shared by the WebSocket and long-poll handlers so both
// transports speak the exact same protocol (spec.md §4.2).
type Router struct {
	deliverer service.Deliverer
	heartbeat service.Heartbeat
	logger    *slog.Logger
}

func NewRouter(deliverer service.Deliverer, heartbeat service.Heartbeat, logger *slog.Logger) *Router {
	return &Router{deliverer: deliverer, heartbeat: heartbeat, logger: logger}
}

// Handle decodes and dispatches one client frame, returning the
// immediate reply to write back to the same connection (an ack, pong,
// or error), or nil when the frame produces no direct reply
// (message.read, typing — spec.md §4.3). A panicking handler is
// recovered and turned into error{INTERNAL_ERROR}; the connection is
// never closed on its account (spec.md §4.2).
func (r *Router) Handle(ctx context.Context, senderID uuid.UUID, raw []byte) (reply []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("FRAME_HANDLER_PANIC", "recover", rec)
			reply = ErrorFrame(model.ErrInternal, "internal error")
		}
	}()

	var cf clientFrame
	if err := json.Unmarshal(raw, &cf); err != nil {
		return ErrorFrame(model.ErrInvalidJSON, "malformed json")
	}

	switch cf.Type {
	case clientTypeMessageSend:
		return r.handleMessageSend(ctx, senderID, cf)
	case clientTypeGroupMessageSend:
		return r.handleGroupMessageSend(ctx, senderID, cf)
	case clientTypeMessageRead:
		return r.handleMessageRead(ctx, senderID, cf)
	case clientTypeTyping:
		r.handleTyping(senderID, cf)
		return nil
	case clientTypePing:
		return r.handlePing(ctx, senderID)
	default:
		return ErrorFrame(model.ErrUnknownType, "unknown frame type")
	}
}

func (r *Router) handleMessageSend(ctx context.Context, senderID uuid.UUID, cf clientFrame) []byte {
	if cf.RecipientID == nil {
		return ErrorFrame(model.ErrMissingRecipient, "recipient_id is required")
	}
	ack, err := r.deliverer.SendDirect(ctx, senderID, *cf.RecipientID, cf.Content, cf.MessageType)
	if err != nil {
		return errorFrameFor(err)
	}
	return mustMarshalFlat(typeMessageAck, ack)
}

func (r *Router) handleGroupMessageSend(ctx context.Context, senderID uuid.UUID, cf clientFrame) []byte {
	if cf.GroupID == nil {
		return ErrorFrame(model.ErrMissingGroup, "group_id is required")
	}
	ack, err := r.deliverer.SendGroup(ctx, senderID, *cf.GroupID, cf.Content, cf.MessageType)
	if err != nil {
		return errorFrameFor(err)
	}
	return mustMarshalFlat(typeMessageAck, ack)
}

func (r *Router) handleMessageRead(ctx context.Context, senderID uuid.UUID, cf clientFrame) []byte {
	if cf.MessageID == nil {
		return ErrorFrame(model.ErrMissingMessageID, "message_id is required")
	}
	if err := r.deliverer.MarkRead(ctx, senderID, *cf.MessageID); err != nil {
		r.logger.Error("MESSAGE_READ_FAILED", "err", err)
		return ErrorFrame(model.ErrInternal, "internal error")
	}
	return nil
}

func (r *Router) handleTyping(senderID uuid.UUID, cf clientFrame) {
	isTyping := true
	if cf.IsTyping != nil {
		isTyping = *cf.IsTyping
	}
	r.deliverer.RelayTyping(senderID, cf.RecipientID, cf.GroupID, isTyping)
}

// handlePing implements spec.md §4.2/§4.5 "refresh TTL, reply pong". A
// failed refresh is logged but still answered with pong — the online
// marker will simply expire on its own TTL instead (spec.md §4.5
// "silently expire ... fallback in case of crash-death").
func (r *Router) handlePing(ctx context.Context, senderID uuid.UUID) []byte {
	if err := r.heartbeat.OnPing(ctx, senderID); err != nil {
		r.logger.Error("HEARTBEAT_REFRESH_FAILED", "user_id", senderID, "err", err)
	}
	return mustMarshalFlat(typePong, model.PongPayload{})
}

// errorFrameFor maps a Delivery Engine sentinel error onto its wire
// error code (spec.md §7).
func errorFrameFor(err error) []byte {
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		return ErrorFrame(model.ErrEmptyContent, err.Error())
	case errors.Is(err, service.ErrMissingRecipient):
		return ErrorFrame(model.ErrMissingRecipient, err.Error())
	case errors.Is(err, service.ErrMissingGroup):
		return ErrorFrame(model.ErrMissingGroup, err.Error())
	case errors.Is(err, service.ErrNotMember):
		return ErrorFrame(model.ErrNotMember, err.Error())
	case errors.Is(err, service.ErrMissingMessageID):
		return ErrorFrame(model.ErrMissingMessageID, err.Error())
	default:
		return ErrorFrame(model.ErrInternal, "internal error")
	}
}

// mustMarshalFlat panics on failure — every caller passes a fixed,
// always-marshalable struct, so a failure here means a programmer
// error, not a runtime condition to recover from.
func mustMarshalFlat(frameType string, payload any) []byte {
	data, err := marshalFlat(frameType, payload)
	if err != nil {
		panic(err)
	}
	return data
}
