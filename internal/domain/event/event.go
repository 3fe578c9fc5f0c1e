package event

import "github.com/google/uuid"

type EventKind int16

//go:generate stringer -type=EventKind
const (
	KindConnected EventKind = iota + 1
	KindDisconnected
	KindMessageNew
	KindGroupMessageNew
	KindOfflineBatch
	KindAck
	KindReadReceipt
	KindTyping
	KindPong
	KindError
)

type EventPriority int32

const (
	PriorityLow    EventPriority = 10
	PriorityNormal EventPriority = 20
	PriorityHigh   EventPriority = 30
)

// Eventer defines the contract for all data packets flowing through the Hub.
type Eventer interface {
	GetID() string
	GetKind() EventKind
	GetUserID() uuid.UUID
	GetPriority() EventPriority
	GetOccurredAt() int64
	GetPayload() any
	// GetCached/SetCached hold an optional pre-marshalled wire
	// representation. Nothing in this tree sets or reads it: the
	// transports marshal the event with frame.Marshal on every write.
	GetCached() any
	SetCached(any)
}

// Exportable marks an event that should also be re-published to the
// cross-process fan-out bus when the target user isn't local to this node.
type Exportable interface {
	// GetRoutingKey returns a per-user routing key, or an empty string for
	// kinds that carry none. The pubsub dispatcher publishes on a fixed
	// topic chosen by event kind and does not read this value.
	GetRoutingKey() string
}
