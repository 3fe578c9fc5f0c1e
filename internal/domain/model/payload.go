package model

import "github.com/google/uuid"

// QueuePointer is the only thing the offline queue stores — a reference,
// never a full message body (spec §3 "Offline queue").
type QueuePointer struct {
	MessageID uuid.UUID `json:"message_id"`
	Kind      string    `json:"kind"` // "direct" | "group"
	GroupID   uuid.UUID `json:"group_id,omitempty"`
}

// MessageNewPayload is the server->client "message.new" frame body
// (spec §6.1).
type MessageNewPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	CreatedAt      string    `json:"created_at"`
}

// GroupMessageNewPayload is the server->client "message.group.new" frame
// body.
type GroupMessageNewPayload struct {
	MessageID   uuid.UUID `json:"message_id"`
	GroupID     uuid.UUID `json:"group_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	CreatedAt   string    `json:"created_at"`
}

// OfflineBatchPayload is the "messages.offline" frame sent once per
// connect (spec §4.6).
type OfflineBatchPayload struct {
	Messages []any `json:"messages"`
	Count    int   `json:"count"`
}

// AckPayload is the sender-side "message.ack" frame.
type AckPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	Delivered      bool      `json:"delivered"`
	Queued         bool      `json:"queued"`
	DeliveredCount *int      `json:"delivered_count,omitempty"`
	Timestamp      string    `json:"timestamp"`
}

// ReadReceiptPayload is the "message.read.receipt" frame.
type ReadReceiptPayload struct {
	MessageID uuid.UUID `json:"message_id"`
	ReaderID  uuid.UUID `json:"reader_id"`
	ReadAt    string    `json:"read_at"`
}

// TypingPayload is both the inbound and outbound "typing" frame body.
type TypingPayload struct {
	UserID      uuid.UUID  `json:"user_id"`
	IsTyping    bool       `json:"is_typing"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
}

// PongPayload is the empty "pong" frame body.
type PongPayload struct{}

// ErrorCode enumerates the taxonomy of spec §6.1/§7 error codes.
type ErrorCode string

const (
	ErrUnknownType      ErrorCode = "UNKNOWN_TYPE"
	ErrInvalidJSON      ErrorCode = "INVALID_JSON"
	ErrMissingRecipient ErrorCode = "MISSING_RECIPIENT"
	ErrMissingGroup     ErrorCode = "MISSING_GROUP"
	ErrEmptyContent     ErrorCode = "EMPTY_CONTENT"
	ErrNotMember        ErrorCode = "NOT_MEMBER"
	ErrMissingMessageID ErrorCode = "MISSING_MESSAGE_ID"
	ErrInternal         ErrorCode = "INTERNAL_ERROR"
)

// ErrorPayload is the "error" frame body.
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
