// Package presence implements the Presence Store (C1): a key/value cache
// holding online markers with TTL, and a list-valued offline queue with
// its own TTL (spec §3, §4.4).
package presence

import (
	"context"

	"github.com/google/uuid"
	"github.com/Merrick1307/chat-core/internal/domain/model"
)

// Store is the C1 surface every other component depends on.
type Store interface {
	MarkOnline(ctx context.Context, userID uuid.UUID) error
	MarkOffline(ctx context.Context, userID uuid.UUID) error
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
	// Refresh extends the TTL of the online marker on heartbeat.
	Refresh(ctx context.Context, userID uuid.UUID) error
	// Partition splits userIDs into (online, offline), preserving input
	// order within each partition (spec §4.4).
	Partition(ctx context.Context, userIDs []uuid.UUID) (online, offline []uuid.UUID, err error)
	// Enqueue pushes pointer onto the user's offline queue and
	// sets/refreshes its TTL.
	Enqueue(ctx context.Context, userID uuid.UUID, pointer model.QueuePointer) error
	// Drain returns the user's queued pointers oldest-first (spec §4.4
	// pins this implementation's delivery order).
	Drain(ctx context.Context, userID uuid.UUID) ([]model.QueuePointer, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}
