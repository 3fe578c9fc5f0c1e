package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// genericEvent is the one concrete Eventer implementation shared by every
// event kind — the wire shape differs only in Payload, which the
// transport-specific marshaller switches on (mirrors the teacher's
// SystemEvent envelope, generalized from "any signal" to the full
// frame vocabulary).
type genericEvent struct {
	id         string
	userID     uuid.UUID
	kind       EventKind
	priority   EventPriority
	occurredAt int64
	payload    any
	cached     any
	routingKey string
}

var _ Eventer = (*genericEvent)(nil)
var _ Exportable = (*genericEvent)(nil)

func (e *genericEvent) GetID() string             { return e.id }
func (e *genericEvent) GetKind() EventKind        { return e.kind }
func (e *genericEvent) GetUserID() uuid.UUID      { return e.userID }
func (e *genericEvent) GetPriority() EventPriority { return e.priority }
func (e *genericEvent) GetOccurredAt() int64      { return e.occurredAt }
func (e *genericEvent) GetPayload() any           { return e.payload }
func (e *genericEvent) GetCached() any            { return e.cached }
func (e *genericEvent) SetCached(v any)           { e.cached = v }
func (e *genericEvent) GetRoutingKey() string     { return e.routingKey }

func newEvent(userID uuid.UUID, kind EventKind, priority EventPriority, payload any) *genericEvent {
	return &genericEvent{
		id:         uuid.NewString(),
		userID:     userID,
		kind:       kind,
		priority:   priority,
		occurredAt: time.Now().UnixMilli(),
		payload:    payload,
	}
}

// NewMessageNewEvent wraps a "message.new" payload destined for userID
// (the physical recipient socket owner, not necessarily the sender).
// Exportable so other nodes can pick it up when userID isn't local here.
func NewMessageNewEvent(userID uuid.UUID, payload any) Eventer {
	ev := newEvent(userID, KindMessageNew, PriorityHigh, payload)
	ev.routingKey = fmt.Sprintf("chat.message.%s.new", userID)
	return ev
}

// NewGroupMessageNewEvent wraps a "message.group.new" payload.
func NewGroupMessageNewEvent(userID uuid.UUID, payload any) Eventer {
	ev := newEvent(userID, KindGroupMessageNew, PriorityHigh, payload)
	ev.routingKey = fmt.Sprintf("chat.message.%s.group.new", userID)
	return ev
}

// NewOfflineBatchEvent wraps a "messages.offline" payload. Never exported
// cross-process — it is produced locally by the Offline Flush (C7) after
// it has already resolved the queue through the Message Store.
func NewOfflineBatchEvent(userID uuid.UUID, payload any) Eventer {
	return newEvent(userID, KindOfflineBatch, PriorityNormal, payload)
}

// NewAckEvent wraps a "message.ack" payload sent back to the sender.
func NewAckEvent(userID uuid.UUID, payload any) Eventer {
	return newEvent(userID, KindAck, PriorityHigh, payload)
}

// NewReadReceiptEvent wraps a "message.read.receipt" payload.
func NewReadReceiptEvent(userID uuid.UUID, payload any) Eventer {
	ev := newEvent(userID, KindReadReceipt, PriorityNormal, payload)
	ev.routingKey = fmt.Sprintf("chat.message.%s.read.receipt", userID)
	return ev
}

// NewTypingEvent wraps a "typing" payload. Typing is a pure, unpersisted
// relay (spec §4.3): it carries no routing key and the fan-out dispatcher
// has no topic for it, so it is never exported — cross-process typing
// fan-out is out of scope.
func NewTypingEvent(userID uuid.UUID, payload any) Eventer {
	return newEvent(userID, KindTyping, PriorityLow, payload)
}

// NewPongEvent wraps an empty "pong" payload.
func NewPongEvent(userID uuid.UUID, payload any) Eventer {
	return newEvent(userID, KindPong, PriorityLow, payload)
}

// NewErrorEvent wraps an "error" payload.
func NewErrorEvent(userID uuid.UUID, payload any) Eventer {
	return newEvent(userID, KindError, PriorityNormal, payload)
}

// NewConnectedEvent wraps a "connected" system payload delivered to a
// single newly-opened connection.
func NewConnectedEvent(userID uuid.UUID, payload any) Eventer {
	return newEvent(userID, KindConnected, PriorityNormal, payload)
}

// NewDisconnectedEvent wraps a "disconnected" system payload sent before
// the server tears a connection down.
func NewDisconnectedEvent(userID uuid.UUID, payload any) Eventer {
	return newEvent(userID, KindDisconnected, PriorityNormal, payload)
}
