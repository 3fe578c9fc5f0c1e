package model

import "github.com/google/uuid"

// Message is a direct message between two users (spec §3 "Direct message").
//
// Invariant: CreatedAt is monotonic per sender within a single process;
// DeliveredAt and ReadAt are set at most once, and only in the order
// CreatedAt <= DeliveredAt <= ReadAt when present.
type Message struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Content     string
	Kind        string // "text" by default; free-form message_type otherwise
	CreatedAt   int64  // unix millis
	DeliveredAt int64  // 0 until set
	ReadAt      int64  // 0 until set
}

// User is the minimal local identity record used for display-name
// enrichment (see internal/service.Enricher).
type User struct {
	ID       uuid.UUID
	Username string
}
